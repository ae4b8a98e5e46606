package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/chzyer/readline"
	e "github.com/loxvm/loxvm/errors"
	"github.com/loxvm/loxvm/vm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	easy "github.com/t-tomalak/logrus-easy-formatter"
)

// Exit codes, verbatim from the interpreter's contract with its caller.
const (
	exitOK             = 0
	exitUsage          = 64
	exitCompileError   = 65
	exitRuntimeError   = 70
	exitCannotReadFile = 74
)

func App() (app *cobra.Command) {
	app = &cobra.Command{
		Use:   "loxvm [source]",
		Short: "Run the loxvm bytecode interpreter",
		Args:  cobra.MaximumNArgs(1),
	}

	app.Flags().SortFlags = true
	const defaultLogLevel = "INFO"
	logLevel := app.Flags().StringP("log-level", "l", defaultLogLevel, "Logging verbosity")
	disassemble := app.Flags().BoolP("disassemble", "d", false, "Print disassembled chunks before running them")

	app.Run = func(_ *cobra.Command, args []string) {
		lvl, err := logrus.ParseLevel(*logLevel)
		if err != nil {
			lvl, _ = logrus.ParseLevel(defaultLogLevel)
		}
		logrus.SetLevel(lvl)
		logrus.SetFormatter(&easy.Formatter{LogFormat: "//DBG// %msg%\n"})

		os.Exit(appMain(args, *disassemble))
	}
	return
}

func appMain(args []string, disassemble bool) int {
	v := vm.NewVM()

	if len(args) == 0 {
		return repl(v, disassemble)
	}
	return runFile(v, args[0], disassemble)
}

func runFile(v *vm.VM, path string, disassemble bool) int {
	src, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("can't read file %q: %s", path, err)
		return exitCannotReadFile
	}

	if !disassemble {
		_, err = v.Interpret(string(src), false)
		return reportResult(err)
	}

	parser := vm.NewParser()
	fun, err := parser.Compile(string(src), false)
	if err != nil {
		return reportResult(err)
	}
	fmt.Println(fun.Chunk.Disassemble(path))
	_, err = v.InterpretFunction(fun)
	return reportResult(err)
}

func repl(v *vm.VM, disassemble bool) int {
	rl, err := readline.New("> ")
	if err != nil {
		logrus.Error(err)
		return exitUsage
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return exitOK
		}
		if line == "exit" {
			return exitOK
		}
		if line == "" {
			continue
		}

		if !disassemble {
			val, err := v.Interpret(line, true)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			fmt.Println(val)
			continue
		}

		parser := vm.NewParser()
		fun, err := parser.Compile(line, true)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println(fun.Chunk.Disassemble("repl"))
		val, err := v.InterpretFunction(fun)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println(val)
	}
}

// reportResult classifies an Interpret error for the exit-code contract.
// A *RuntimeError is the only error shape vm.run produces, so its
// presence is the one reliable signal; anything else came from the
// compiler's (possibly multi-error) result.
func reportResult(err error) int {
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(os.Stderr, err)

	var runtimeErr *e.RuntimeError
	if errors.As(err, &runtimeErr) {
		return exitRuntimeError
	}
	return exitCompileError
}
