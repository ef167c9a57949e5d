package profileselect

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/sysmanager-dev/sysmanager/internal/cli/config"
	"github.com/sysmanager-dev/sysmanager/internal/cli/userconfig"
)

// ErrNoProfiles is returned when the project config lists no profile
var ErrNoProfiles = errors.New("no profiles configured in " + config.ConfigFileName)

// Prompt asks the user to pick a profile. Replaced in tests.
var Prompt = PromptProfileSelection

// ResolveProfile determines which profile to use based on the following priority:
// 1. The profile named by the --profile flag
// 2. The profile selected for this project in the user config
// 3. The only profile, when there is one
// 4. An interactive choice
//
// Choices made by 3 and 4 are remembered for the project.
func ResolveProfile(projectPath string, projectConfig *config.Config, name string) (*config.Profile, error) {
	if name != "" {
		return projectConfig.GetProfile(name)
	}

	selected, err := userconfig.GetSelectedProfile(projectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if selected != "" {
		profile, err := projectConfig.GetProfile(selected)
		if err == nil {
			return profile, nil
		}
		// Selected profile no longer exists in the project config
		_ = userconfig.SetSelectedProfile(projectPath, "")
	}

	var profile *config.Profile
	switch len(projectConfig.Profiles) {
	case 0:
		return nil, ErrNoProfiles
	case 1:
		profile = &projectConfig.Profiles[0]
	default:
		profile, err = Prompt(projectConfig)
		if err != nil {
			return nil, err
		}
	}

	if err := userconfig.SetSelectedProfile(projectPath, profile.Name); err != nil {
		fmt.Printf("Warning: failed to save selected profile: %v\n", err)
	}

	return profile, nil
}

// PromptProfileSelection shows an interactive prompt for the user to select a profile
func PromptProfileSelection(projectConfig *config.Config) (*config.Profile, error) {
	if len(projectConfig.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	type profileOption struct {
		Label   string
		Profile *config.Profile
	}

	options := make([]profileOption, len(projectConfig.Profiles))
	for i := range projectConfig.Profiles {
		profile := &projectConfig.Profiles[i]
		options[i] = profileOption{
			Label:   fmt.Sprintf("%s (%s)", profile.Name, profile.URI),
			Profile: profile,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a profile",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("profile selection cancelled: %w", err)
	}

	return options[index].Profile, nil
}
