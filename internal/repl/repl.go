package repl

import (
	"bufio"
	"fmt"
	"gem/internal/evaluator"
	"gem/internal/lexer"
	"gem/internal/object"
	"gem/internal/parser"
	"io"
)

const PROMPT = ">> "

// Start runs the read-eval-print loop. The runtime and the global frame
// persist across lines, so definitions and variables stay visible for the
// whole session.
func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	runtime := evaluator.New(out)
	frame := object.NewFrame()

	for {
		fmt.Fprint(out, PROMPT)
		scanned := scanner.Scan()
		if !scanned {
			return
		}

		line := scanner.Text()
		l := lexer.New(line)
		p := parser.New(l, line)

		program := p.ParseProgram()
		if len(p.Errors()) != 0 {
			printParserErrors(out, p.Errors())
			continue
		}

		evaluated := runtime.Eval(program, frame)
		if evaluated != nil {
			io.WriteString(out, runtime.Render(evaluated))
			io.WriteString(out, "\n")
		}
	}
}

func printParserErrors(out io.Writer, errors []string) {
	io.WriteString(out, "parser errors:\n")
	for _, msg := range errors {
		io.WriteString(out, "\t"+msg+"\n")
	}
}
