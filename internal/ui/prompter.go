package ui

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/adrg/xdg"

	"zipatch/internal/zp"
)

// TerminalPrompter asks for archives, directories and confirmations on a
// line-oriented terminal. Empty input cancels a path prompt. End of input
// is returned as io.EOF.
type TerminalPrompter struct {
	in    *bufio.Reader
	out   io.Writer
	fsmgr zp.FilesystemManager
}

var _ zp.Prompter = (*TerminalPrompter)(nil)

func NewTerminalPrompter(in io.Reader, out io.Writer, fsmgr zp.FilesystemManager) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out, fsmgr: fsmgr}
}

// OpenArchive lists the archives found in initialDir and accepts either a
// list number or a path. Relative paths are taken relative to initialDir.
// The typed path may have any extension.
func (p *TerminalPrompter) OpenArchive(initialDir string) (string, bool, error) {
	candidates := p.archivesIn(initialDir)
	if len(candidates) > 0 {
		fmt.Fprintf(p.out, "Archives in %s:\n", initialDir)
		for i, name := range candidates {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, name)
		}
	}

	for {
		line, err := p.ask("Archive (number or path, empty to cancel): ")
		if err != nil {
			return "", false, err
		}
		if line == "" {
			return "", false, nil
		}

		if n, err := strconv.Atoi(line); err == nil {
			if n < 1 || n > len(candidates) {
				fmt.Fprintf(p.out, "No archive numbered %d\n", n)
				continue
			}
			return filepath.Join(initialDir, candidates[n-1]), true, nil
		}

		path, err := p.fsmgr.Resolve(resolveAgainst(initialDir, line))
		if err != nil {
			fmt.Fprintf(p.out, "Cannot open %s: %v\n", line, err)
			continue
		}
		if path.IsDir() {
			fmt.Fprintf(p.out, "%s is a directory\n", path)
			continue
		}
		return path.String(), true, nil
	}
}

// ChooseDirectory accepts a directory path. "." selects initialDir.
func (p *TerminalPrompter) ChooseDirectory(initialDir string) (string, bool, error) {
	for {
		line, err := p.ask(fmt.Sprintf("Destination directory (relative to %s, empty to cancel): ", initialDir))
		if err != nil {
			return "", false, err
		}
		if line == "" {
			return "", false, nil
		}

		path, err := p.fsmgr.Resolve(resolveAgainst(initialDir, line))
		if err != nil {
			fmt.Fprintf(p.out, "Cannot use %s: %v\n", line, err)
			continue
		}
		if !path.IsDir() {
			fmt.Fprintf(p.out, "%s is not a directory\n", path)
			continue
		}
		return path.String(), true, nil
	}
}

// YesNo asks question and defaults to no.
func (p *TerminalPrompter) YesNo(question string) (bool, error) {
	for {
		line, err := p.ask(question + " [y/N]: ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n")
	}
}

// ask prints prompt and reads one trimmed line. A final line without a
// newline is still returned; io.EOF is only reported once input is exhausted.
func (p *TerminalPrompter) ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSpace(line), nil
		}
		if err == io.EOF {
			fmt.Fprintln(p.out)
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// archivesIn returns the names of supported archives in dir, sorted.
func (p *TerminalPrompter) archivesIn(dir string) []string {
	entries, err := p.fsmgr.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := zp.FormatFromPath(e.Name()); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// resolveAgainst makes p absolute, expanding a leading "~/" to the home
// directory and joining other relative paths onto base.
func resolveAgainst(base, p string) string {
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(xdg.Home, p[2:])
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// PresetPrompter answers the first archive and directory prompts with
// fixed paths, then defers to the wrapped prompter.
type PresetPrompter struct {
	next        zp.Prompter
	archive     string
	destination string
}

var _ zp.Prompter = (*PresetPrompter)(nil)

func NewPresetPrompter(next zp.Prompter, archive, destination string) *PresetPrompter {
	return &PresetPrompter{next: next, archive: archive, destination: destination}
}

func (p *PresetPrompter) OpenArchive(initialDir string) (string, bool, error) {
	if p.archive != "" {
		a := p.archive
		p.archive = ""
		return a, true, nil
	}
	return p.next.OpenArchive(initialDir)
}

func (p *PresetPrompter) ChooseDirectory(initialDir string) (string, bool, error) {
	if p.destination != "" {
		d := p.destination
		p.destination = ""
		return d, true, nil
	}
	return p.next.ChooseDirectory(initialDir)
}

func (p *PresetPrompter) YesNo(question string) (bool, error) {
	return p.next.YesNo(question)
}
