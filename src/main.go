// Command jitawk reads an AWK program and, with -ts, prints its token
// stream. Parsing and SSA construction are outside this module's scope, and
// this command has no way to take a typed SSA IR from elsewhere, so it does
// not compile or run programs: without -ts it reports that and exits. The
// JIT side lives in src/ir/llvm and src/driver as library code.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"jitawk/src/lexer"
	"jitawk/src/util"
)

func main() {
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, "jitawk:", err)
		os.Exit(2)
	}

	src, err := readProgram(opt)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jitawk:", err)
		os.Exit(1)
	}

	if opt.TokenStream {
		printTokens(src)
		return
	}

	fmt.Fprintln(os.Stderr, "jitawk: program parsing and IR construction are not implemented by this build;")
	fmt.Fprintln(os.Stderr, "        pass -ts to inspect the token stream instead.")
	os.Exit(1)
}

// readProgram resolves the program source from -e, -f, or a bare first
// argument (src/util.ParseArgs already applies that fallback), exactly the
// precedence order the reference implementation uses.
func readProgram(opt util.Options) (string, error) {
	if opt.Program != "" {
		return opt.Program, nil
	}
	if opt.ProgFile != "" {
		b, err := os.ReadFile(opt.ProgFile)
		if err != nil {
			return "", fmt.Errorf("read program file: %w", err)
		}
		return string(b), nil
	}
	return readStdinWithTimeout(500 * time.Millisecond)
}

// readStdinWithTimeout waits briefly for piped stdin before giving up, so
// an interactive terminal with nothing piped in fails fast with a clear
// error rather than hanging forever.
func readStdinWithTimeout(d time.Duration) (string, error) {
	ch := make(chan []byte, 1)
	errc := make(chan error, 1)
	go func() {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			errc <- err
			return
		}
		ch <- b
	}()
	select {
	case b := <-ch:
		return string(b), nil
	case err := <-errc:
		return "", err
	case <-time.After(d):
		return "", fmt.Errorf("no program given: pass -e PROG, -f FILE, or pipe a program on stdin")
	}
}

func printTokens(src string) {
	l := lexer.New(src)
	go l.Run()
	for t := range l.Tokens() {
		fmt.Println(t)
		if t.Type == lexer.EOF || t.Type == lexer.Error {
			return
		}
	}
}
