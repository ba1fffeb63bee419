// Command svmasm assembles a text program (spec.md §4.4) into the flat
// bytecode file format cmd/svm runs, adapting the teacher's bare os.Args
// driven main.go into a github.com/spf13/cobra command tree (SPEC_FULL.md
// "Configuration").
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"svm/asm"
	"svm/vm"
)

var (
	logFormat string
	log       = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:   "svmasm <input.asm> [output.bin]",
		Short: "Assemble a text program into svm bytecode",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runAssemble,
	}
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", `log output format: "text" or "json"`)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAssemble(cmd *cobra.Command, args []string) error {
	configureLog()

	input := args[0]
	output := args[0]
	if strings.HasSuffix(output, ".asm") {
		output = strings.TrimSuffix(output, ".asm")
	}
	output += ".bin"
	if len(args) == 2 {
		output = args[1]
	}

	source, err := os.ReadFile(input)
	if err != nil {
		log.WithError(err).Error("reading source file")
		return err
	}

	program, err := asm.Assemble(string(source))
	if err != nil {
		log.WithFields(logrus.Fields{"file": input}).WithError(err).Error("assembly failed")
		return err
	}

	if err := vm.SaveProgramFile(output, program); err != nil {
		log.WithError(err).Error("writing bytecode file")
		return err
	}

	log.WithFields(logrus.Fields{"instructions": len(program), "output": output}).Info("assembled")
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d instructions to %s\n", len(program), output)
	return nil
}

func configureLog() {
	if logFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{})
	}
}
