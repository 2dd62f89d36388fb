// Command qs decodes and encodes bracket-notation query strings from
// the command line, which is handy for poking at what a web framework
// will see.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/kr/pretty"
	qs "github.com/samscott89/serde-qs"
	"github.com/samscott89/serde-qs/pairs"
)

var globalArgs struct {
	MaxDepth int  `flag:"max-depth,default=5,Maximum key nesting depth (0 disables brackets)"`
	Form     bool `flag:"form,Use strict application/x-www-form-urlencoded escaping"`
}

func config() qs.Config {
	return qs.Config{
		MaxDepth:        globalArgs.MaxDepth,
		UseFormEncoding: globalArgs.Form,
	}
}

func main() {
	root := &command.C{
		Name:     "qs",
		Usage:    "command args...",
		SetFlags: command.Flags(flax.MustBind, &globalArgs),
		Commands: []*command.C{
			{
				Name:  "decode",
				Usage: "decode [query]",
				Help: `Decode a query string into a value tree.

The query is taken from the arguments, or from stdin if none are
given. A leading '?' is ignored so curl-style URLs paste cleanly.`,
				SetFlags: command.Flags(flax.MustBind, &decodeArgs),
				Run:      runDecode,
			},
			{
				Name:  "encode",
				Usage: "encode [json]",
				Help: `Encode a JSON object as a query string.

The JSON object is taken from the arguments, or from stdin if none
are given.`,
				Run: runEncode,
			},
			{
				Name:  "scan",
				Usage: "scan [query]",
				Help: `Show the raw pairs and parsed key paths of a query string.

Useful for seeing how bracket syntax and percent escapes split before
any typing is applied.`,
				Run: runScan,
			},
			command.HelpCommand(nil),
			command.VersionCommand(),
		},
	}

	env := root.NewEnv(nil)
	command.RunOrFail(env, os.Args[1:])
}

var decodeArgs struct {
	JSON bool `flag:"json,Print the decoded value as JSON instead of Go syntax"`
}

// input returns the command's subject text: its arguments joined, or
// all of stdin.
func input(env *command.Env) (string, error) {
	if len(env.Args) > 0 {
		return strings.Join(env.Args, "&"), nil
	}
	bs, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSpace(string(bs)), nil
}

func runDecode(env *command.Env) error {
	in, err := input(env)
	if err != nil {
		return err
	}
	in = strings.TrimPrefix(in, "?")

	var v any
	if err := config().Unmarshal(in, &v); err != nil {
		return fmt.Errorf("decoding query: %w", err)
	}
	if decodeArgs.JSON {
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	fmt.Printf("%# v\n", pretty.Formatter(v))
	return nil
}

func runEncode(env *command.Env) error {
	in, err := input(env)
	if err != nil {
		return err
	}

	var v map[string]any
	if err := json.Unmarshal([]byte(in), &v); err != nil {
		return fmt.Errorf("parsing JSON input: %w", err)
	}
	out, err := config().Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding query: %w", err)
	}
	fmt.Println(out)
	return nil
}

func runScan(env *command.Env) error {
	in, err := input(env)
	if err != nil {
		return err
	}
	in = strings.TrimPrefix(in, "?")

	mode := pairs.Minimal
	if globalArgs.Form {
		mode = pairs.FormEncoded
	}
	ps, err := pairs.Scan(in, mode)
	if err != nil {
		return fmt.Errorf("scanning query: %w", err)
	}
	for _, p := range ps {
		path, err := pairs.ParsePath(p.Key, globalArgs.MaxDepth)
		if err != nil {
			fmt.Printf("%s: %v\n", p.Key, err)
			continue
		}
		if v, ok := p.Value.GetOK(); ok {
			fmt.Printf("%s = %q\n", path, v)
		} else {
			fmt.Printf("%s (bare key)\n", path)
		}
	}
	return nil
}
