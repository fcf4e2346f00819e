package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/spigell/fit-check/internal/vibe"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var errExit = errors.New("exit requested")

// pickStyle asks for a style when none was given on the command line.
func pickStyle(catalog *vibe.Catalog, styleID string) (string, error) {
	if styleID = strings.TrimSpace(styleID); styleID != "" {
		return styleID, nil
	}

	styles := catalog.Styles()
	if len(styles) == 0 {
		return "", errors.New("the vibe catalog is empty")
	}

	selectPrompt := promptui.Select{
		Label: "Which vibe?",
		Items: styles,
		Size:  10,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "▸ {{ .Emoji }} {{ .Name | cyan }}",
			Inactive: "  {{ .Emoji }} {{ .Name }}",
			Selected: "{{ .Emoji }} {{ .Name }}",
			Details:  "{{ .Description | faint }}",
		},
	}

	idx, _, err := selectPrompt.Run()
	if err != nil {
		return "", fmt.Errorf("%w: %v", errExit, err)
	}
	return styles[idx].ID, nil
}

// confirm asks a yes/no question.
func confirm(label string) (bool, error) {
	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptYes, PromptNo},
	}
	_, action, err := prompt.Run()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errExit, err)
	}
	return action == PromptYes, nil
}
