package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

func (f *Flag) isBool() bool {
	_, ok := f.Value.(*boolValue)
	return ok
}

type FlagGroup struct {
	Name                 string
	Description          string
	Flags                []FlagGroupEntry
	GroupType            string
	AvailableFlagsHeader string
}

type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	args       []string
	flagGroups []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, fmt.Sprintf("%v", value), expectedType)
}

func (f *FlagSet) AddFlagGroup(name, description, groupType, availableFlagsHeader string, entries []FlagGroupEntry) {
	for _, e := range entries {
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
		}
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{
		Name:                 name,
		Description:          description,
		Flags:                entries,
		GroupType:            groupType,
		AvailableFlagsHeader: availableFlagsHeader,
	})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

// Parse accepts --name[=value], -name[=value] for long names (so that group
// switches like -Woverflow work) and -x[value] for shorthands.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case len(arg) < 2 || arg[0] != '-':
			f.args = append(f.args, arg)
			continue
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		}

		long := strings.HasPrefix(arg, "--")
		body := strings.TrimLeft(arg, "-")
		name, value, hasValue := strings.Cut(body, "=")
		if name == "" {
			return fmt.Errorf("empty flag name in '%s'", arg)
		}

		flag, ok := f.flags[name]
		if !ok && long {
			return fmt.Errorf("unknown flag: --%s", name)
		}
		if !ok {
			if err := f.parseShortFlag(arg, arguments, &i); err != nil {
				return err
			}
			continue
		}

		switch {
		case hasValue:
			if err := flag.Value.Set(value); err != nil {
				return err
			}
		case flag.isBool():
			if err := flag.Value.Set(""); err != nil {
				return err
			}
		default:
			if i+1 >= len(arguments) {
				return fmt.Errorf("flag needs an argument: %s", arg)
			}
			i++
			if err := flag.Value.Set(arguments[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *FlagSet) parseShortFlag(arg string, arguments []string, i *int) error {
	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok {
		return fmt.Errorf("unknown flag: %s", arg)
	}
	if flag.isBool() {
		return flag.Value.Set(arg[2:])
	}
	value := strings.TrimPrefix(arg[2:], "=")
	if value == "" {
		if *i+1 >= len(arguments) {
			return fmt.Errorf("flag needs an argument: -%s", shorthand)
		}
		*i++
		value = arguments[*i]
	}
	return flag.Value.Set(value)
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (a *App) Run(arguments []string) error {
	help := false
	if flag := a.FlagSet.Lookup("help"); flag != nil {
		flag.Value = &boolValue{&help}
	} else {
		a.FlagSet.Bool(&help, "help", "h", false, "Display this information")
	}

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintf(a.Stderr, "%s: %v\n", a.Name, err)
		a.writeUsage(a.Stderr)
		return err
	}
	if help {
		a.writeHelp(a.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (a *App) writeUsage(w io.Writer) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)

	opts := a.optionFlags()
	if len(opts) > 0 {
		sb.WriteString("\n    Options\n")
		l := a.newLayout(opts)
		for _, flag := range opts {
			l.flagLine(&sb, flag)
		}
	}
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	fmt.Fprint(w, sb.String())
}

func (a *App) writeHelp(w io.Writer) {
	var sb strings.Builder
	opts := a.optionFlags()
	l := a.newLayout(opts)

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "    Copyright (c) %d: %s\n", time.Now().Year(), strings.Join(a.Authors, ", ")+" and contributors")
	if a.Repository != "" {
		fmt.Fprintf(&sb, "    For more details refer to %s\n", a.Repository)
	}
	if a.Synopsis != "" {
		synopsis := strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis)
		fmt.Fprintf(&sb, "\n    Synopsis\n        %s %s\n", a.Name, synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n    Description\n        %s\n", a.Description)
	}
	if len(opts) > 0 {
		sb.WriteString("\n    Options\n")
		for _, flag := range opts {
			l.flagLine(&sb, flag)
		}
	}

	groups := slices.Clone(a.FlagSet.flagGroups)
	slices.SortFunc(groups, func(x, y FlagGroup) int { return strings.Compare(x.Name, y.Name) })
	for _, g := range groups {
		l.group(&sb, g)
	}
	fmt.Fprint(w, sb.String())
}

// optionFlags lists the plain options, sorted, leaving out group switches.
func (a *App) optionFlags() []*Flag {
	grouped := make(map[string]bool)
	for _, g := range a.FlagSet.flagGroups {
		for _, e := range g.Flags {
			grouped[e.Prefix+e.Name] = true
			grouped[e.Prefix+"no-"+e.Name] = true
		}
	}
	var opts []*Flag
	for name, flag := range a.FlagSet.flags {
		if !grouped[name] {
			opts = append(opts, flag)
		}
	}
	slices.SortFunc(opts, func(x, y *Flag) int { return strings.Compare(x.Name, y.Name) })
	return opts
}

type layout struct {
	termWidth  int
	leftWidth  int
	usageWidth int
}

func (a *App) newLayout(opts []*Flag) layout {
	l := layout{termWidth: terminalWidth()}
	widen := func(left, usage string) {
		l.leftWidth = max(l.leftWidth, len(left))
		l.usageWidth = max(l.usageWidth, len(usage))
	}
	for _, flag := range opts {
		widen(formatFlag(flag), flag.Usage)
	}
	for _, g := range a.FlagSet.flagGroups {
		if len(g.Flags) == 0 {
			continue
		}
		prefix := g.Flags[0].Prefix
		widen(fmt.Sprintf("-%sno-<%s>", prefix, g.GroupType), "")
		for _, e := range g.Flags {
			widen(e.Name, e.Usage)
		}
	}
	return l
}

func formatFlag(flag *Flag) string {
	var sb strings.Builder
	arg := ""
	if !flag.isBool() && flag.ExpectedType != "" {
		arg = " <" + flag.ExpectedType + ">"
	}
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s%s, ", flag.Shorthand, arg)
	}
	fmt.Fprintf(&sb, "--%s%s", flag.Name, arg)
	return sb.String()
}

func (l layout) entry(sb *strings.Builder, left, usage, right string) {
	const indent = "        "
	avail := max(l.termWidth-len(indent)-l.leftWidth-3-len(right), 10)
	lines := wrapText(usage, avail)
	first := ""
	if len(lines) > 0 {
		first = lines[0]
	}
	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indent, l.leftWidth, left, min(l.usageWidth, avail), first, right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indent, l.leftWidth, left, first)
	}
	pad := strings.Repeat(" ", l.leftWidth+1)
	for _, line := range lines[min(1, len(lines)):] {
		fmt.Fprintf(sb, "%s%s%s\n", indent, pad, line)
	}
}

func (l layout) flagLine(sb *strings.Builder, flag *Flag) {
	right := ""
	if !flag.isBool() && flag.DefValue != "" && flag.DefValue != "[]" {
		right = "|" + flag.DefValue + "|"
	}
	l.entry(sb, formatFlag(flag), flag.Usage, right)
}

func (l layout) group(sb *strings.Builder, g FlagGroup) {
	if len(g.Flags) == 0 {
		return
	}
	prefix := g.Flags[0].Prefix
	kind := g.GroupType
	if kind == "" {
		kind = "flag"
	}
	fmt.Fprintf(sb, "\n    %s\n", g.Name)
	fmt.Fprintf(sb, "        %-*s Enable a specific %s\n", l.leftWidth, fmt.Sprintf("-%s<%s>", prefix, kind), kind)
	fmt.Fprintf(sb, "        %-*s Disable a specific %s\n", l.leftWidth, fmt.Sprintf("-%sno-<%s>", prefix, kind), kind)
	if g.AvailableFlagsHeader != "" {
		fmt.Fprintf(sb, "    %s\n", g.AvailableFlagsHeader)
	}

	entries := slices.Clone(g.Flags)
	slices.SortFunc(entries, func(x, y FlagGroupEntry) int { return strings.Compare(x.Name, y.Name) })
	for _, e := range entries {
		mark := "|-|"
		if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) {
			mark = "|x|"
		}
		l.entry(sb, e.Name, e.Usage, mark)
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWidth <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	var line strings.Builder
	for _, word := range words {
		if line.Len() > 0 && line.Len()+1+len(word) > maxWidth {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
