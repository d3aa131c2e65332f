package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/entrhq/envwarn/pkg/config"
	"github.com/entrhq/envwarn/pkg/environment"
	"github.com/entrhq/envwarn/pkg/patterns"
	"github.com/entrhq/envwarn/pkg/rules"
)

// classify prints one line per URL. A URL that cannot be classified is
// reported on its line and does not stop the others.
func (a *app) classify(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: classify needs at least one URL", errUsage)
	}

	set := a.patterns.Load()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, url := range args {
		result, err := environment.Classify(url, set)
		switch {
		case err != nil:
			fmt.Fprintf(w, "%s\terror\t%v\n", url, err)
		case result.Matched():
			fmt.Fprintf(w, "%s\t%s\t%s\n", url, result.Environment, result.MatchedPattern)
		default:
			fmt.Fprintf(w, "%s\t%s\t\n", url, result.Environment)
		}
	}
	return w.Flush()
}

func (a *app) patternsCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: patterns needs a subcommand", errUsage)
	}

	switch sub, rest := args[0], args[1:]; sub {
	case "list":
		set := a.patterns.Load()
		if !a.patterns.Configured() {
			fmt.Println("# built-in defaults")
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, env := range environment.Priority {
			for i, p := range set[env] {
				mark := ""
				if !environment.ValidPattern(p) {
					mark = "invalid, never matches"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", env, i, p, mark)
			}
		}
		return w.Flush()

	case "add":
		if len(rest) != 2 {
			return fmt.Errorf("%w: patterns add ENV PATTERN", errUsage)
		}
		env, err := environment.Parse(rest[0])
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		if !a.patterns.Validate(rest[1]) {
			fmt.Fprintf(os.Stderr, "warning: %q is not a valid regular expression and will never match\n", rest[1])
		}
		return a.patterns.Add(ctx, env, rest[1])

	case "remove":
		if len(rest) != 2 {
			return fmt.Errorf("%w: patterns remove ENV INDEX", errUsage)
		}
		env, err := environment.Parse(rest[0])
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		index, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("%w: invalid index %q", errUsage, rest[1])
		}
		return a.patterns.Remove(ctx, env, index)

	case "reset":
		return a.patterns.Reset(ctx)

	case "validate":
		if len(rest) != 1 {
			return fmt.Errorf("%w: patterns validate PATTERN", errUsage)
		}
		if a.patterns.Validate(rest[0]) {
			fmt.Println("valid")
			return nil
		}
		return fmt.Errorf("invalid regular expression %q", rest[0])

	case "export":
		return a.patterns.Export(os.Stdout)

	case "import":
		if len(rest) != 1 {
			return fmt.Errorf("%w: patterns import FILE", errUsage)
		}
		f, err := os.Open(rest[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", rest[0], err)
		}
		defer f.Close()
		if err := a.patterns.Import(ctx, f); err != nil {
			return err
		}
		for _, p := range patterns.Invalid(a.patterns.Load()) {
			fmt.Fprintf(os.Stderr, "warning: %s[%d] %q will never match\n", p.Environment, p.Index, p.Pattern)
		}
		return nil
	}

	return fmt.Errorf("%w: unknown patterns subcommand %q", errUsage, args[0])
}

func (a *app) rulesCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: rules needs a subcommand", errUsage)
	}

	switch sub, rest := args[0], args[1:]; sub {
	case "list":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for i, r := range a.rules.List() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, r.Domain, r.Text, r.Colour)
		}
		return w.Flush()

	case "add":
		if len(rest) < 2 || len(rest) > 3 {
			return fmt.Errorf("%w: rules add DOMAIN TEXT [COLOUR]", errUsage)
		}
		rule := config.Rule{Domain: rest[0], Text: rest[1]}
		if len(rest) == 3 {
			rule.Colour = rest[2]
		}
		err := a.rules.Add(rule)
		if errors.Is(err, rules.ErrDomainRequired) {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return err

	case "clear":
		return a.rules.Clear()

	case "import-chrome":
		if len(rest) != 1 {
			return fmt.Errorf("%w: rules import-chrome FILE", errUsage)
		}
		data, err := os.ReadFile(rest[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", rest[0], err)
		}
		dump, err := rules.ParseChromeDump(data)
		if err != nil {
			return err
		}
		if err := a.rules.Replace(dump.Rules); err != nil {
			return err
		}
		fmt.Printf("imported %d rules\n", len(dump.Rules))
		for i, r := range dump.Rules {
			if _, err := environment.CompileCaseSensitive(r.Domain); err != nil {
				fmt.Fprintf(os.Stderr, "warning: rule %d domain %q will never match\n", i, r.Domain)
			}
		}
		if dump.Patterns != nil {
			if err := a.patterns.Save(ctx, dump.Patterns); err != nil {
				return err
			}
			fmt.Printf("imported %d environment patterns\n", dump.Patterns.Len())
			for _, p := range patterns.Invalid(dump.Patterns) {
				fmt.Fprintf(os.Stderr, "warning: %s[%d] %q will never match\n", p.Environment, p.Index, p.Pattern)
			}
		}
		return nil
	}

	return fmt.Errorf("%w: unknown rules subcommand %q", errUsage, args[0])
}
