package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/docker/go-units"
)

// Options holds jitawk's command line configuration.
type Options struct {
	Program     string // Inline AWK program text, set via -e. Mutually exclusive with ProgFile.
	ProgFile    string // Path to an AWK program source file, set via -f.
	Inputs      []string // Input file paths. Read from stdin if empty.
	Out         string   // Path to output file. Defaults to stdout.
	Workers     int      // Number of parallel worker shuttles. 1 disables the parallel entrypoint triple.
	OptLevel    int      // LLVM optimization level, 0-3.
	BufferSize  int64    // Parallel writer batch cutoff, in bytes.
	Verbose     bool     // Print compile/optimize/run statistics to stderr.
	TokenStream bool     // Print the lexer's token stream and exit.
}

const (
	maxWorkers           = 64
	defaultWorkers       = 4
	defaultOptLevel      = 2
	defaultBufferBytes   = 1 << 20 // 1MiB, matches the writer's own batch cutoff.
	appVersion           = "jitawk 0.1"
)

// ParseArgs parses os.Args[1:] into Options.
func ParseArgs() (Options, error) {
	opt := Options{Workers: defaultWorkers, OptLevel: defaultOptLevel, BufferSize: defaultBufferBytes}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-e":
			v, err := flagArg(args, &i1)
			if err != nil {
				return opt, err
			}
			opt.Program = v
		case "-f":
			v, err := flagArg(args, &i1)
			if err != nil {
				return opt, err
			}
			opt.ProgFile = v
		case "-o":
			v, err := flagArg(args, &i1)
			if err != nil {
				return opt, err
			}
			opt.Out = v
		case "-workers":
			v, err := flagArg(args, &i1)
			if err != nil {
				return opt, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxWorkers {
				return opt, fmt.Errorf("worker count must be an integer in range [1, %d]", maxWorkers)
			}
			opt.Workers = n
		case "-O":
			v, err := flagArg(args, &i1)
			if err != nil {
				return opt, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 || n > 3 {
				return opt, fmt.Errorf("optimization level must be an integer in range [0, 3]")
			}
			opt.OptLevel = n
		case "-buffer":
			v, err := flagArg(args, &i1)
			if err != nil {
				return opt, err
			}
			n, err := units.RAMInBytes(v)
			if err != nil {
				return opt, fmt.Errorf("invalid buffer size %q: %w", v, err)
			}
			opt.BufferSize = n
		case "-ts":
			opt.TokenStream = true
		case "-vb":
			opt.Verbose = true
		default:
			if strings.HasPrefix(args[i1], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			opt.Inputs = append(opt.Inputs, args[i1])
		}
	}
	if opt.Program == "" && opt.ProgFile == "" && len(opt.Inputs) > 0 {
		// awk's own convention: first bare argument is the program text if
		// neither -e nor -f was given.
		opt.Program = opt.Inputs[0]
		opt.Inputs = opt.Inputs[1:]
	}
	return opt, nil
}

// flagArg consumes and returns the argument following args[*i], advancing *i.
func flagArg(args []string, i *int) (string, error) {
	if *i+1 >= len(args) {
		return "", fmt.Errorf("got flag %s but no argument", args[*i])
	}
	*i++
	return args[*i], nil
}

// printHelp prints a usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-e PROG\tUse PROG as the program text.")
	_, _ = fmt.Fprintln(w, "-f FILE\tRead the program from FILE.")
	_, _ = fmt.Fprintln(w, "-o FILE\tWrite program output to FILE instead of stdout.")
	_, _ = fmt.Fprintf(w, "-workers N\tNumber of parallel worker shuttles, in range [1, %d]. Defaults to %d.\n", maxWorkers, defaultWorkers)
	_, _ = fmt.Fprintln(w, "-O N\tLLVM optimization level, in range [0, 3]. Defaults to 2.")
	_, _ = fmt.Fprintln(w, "-buffer SIZE\tOutput writer batch cutoff, e.g. '1MiB'. Defaults to 1MiB.")
	_, _ = fmt.Fprintln(w, "-ts\tPrint the token stream and exit.")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: print compile/optimize/run statistics to stderr.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrint the version and exit.")
	_ = w.Flush()
}
