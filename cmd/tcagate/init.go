package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/tcagate/internal/config"
	"github.com/ludo-technologies/tcagate/internal/constants"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a tcagate configuration file",
		Long: `Generate a documented tcagate configuration file.

By default, creates tcagate.yaml in the current directory for a quick scan
with the standard redline preset. Use --interactive for a guided setup.

Examples:
  # Create tcagate.yaml in current directory
  tcagate init

  # Server-backed scan with strict redlines
  tcagate init --profile local --strictness strict

  # Overwrite existing file
  tcagate init --force

  # Interactive setup wizard
  tcagate init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("config", "c", constants.ConfigFileName,
		"Output path for the config file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing config file")
	cmd.Flags().Bool("minimal", false,
		"Generate minimal config with essential options only")
	cmd.Flags().String("profile", string(config.ScanProfileQuick),
		"Scan profile: quick, local")
	cmd.Flags().String("strictness", string(config.StrictnessStandard),
		"Redline preset: relaxed, standard, strict")
	cmd.Flags().BoolP("interactive", "i", false,
		"Interactive setup wizard")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")
	minimal, _ := cmd.Flags().GetBool("minimal")
	interactive, _ := cmd.Flags().GetBool("interactive")
	profileFlag, _ := cmd.Flags().GetString("profile")
	strictnessFlag, _ := cmd.Flags().GetString("strictness")

	profile := config.ScanProfile(profileFlag)
	if profile != config.ScanProfileQuick && profile != config.ScanProfileLocal {
		return fmt.Errorf("invalid profile %q, must be one of: quick, local", profileFlag)
	}
	strictness := config.Strictness(strictnessFlag)
	if _, ok := config.GetStrictnessPresets()[strictness]; !ok {
		return fmt.Errorf("invalid strictness %q, must be one of: relaxed, standard, strict", strictnessFlag)
	}

	if interactive {
		var err error
		profile, strictness, configPath, err = runInteractiveSetup(configPath)
		if err != nil {
			return err
		}
	}

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
		}
	}

	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
	}

	var content string
	if minimal {
		content = config.GetMinimalConfigTemplate()
	} else {
		content = config.GetFullConfigTemplate(profile, strictness)
	}

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	displayPath := configPath
	if absPath, err := filepath.Abs(configPath); err == nil {
		displayPath = absPath
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", displayPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nRun 'tcagate scan' in your pipeline to apply the quality gate.")

	return nil
}

func runInteractiveSetup(defaultConfigPath string) (config.ScanProfile, config.Strictness, string, error) {
	fmt.Println()
	fmt.Println("tcagate Configuration Setup")
	fmt.Println("===========================")
	fmt.Println()

	profiles := []struct {
		Label       string
		Description string
		Value       config.ScanProfile
	}{
		{"Quick scan", "Standalone, no analysis server needed", config.ScanProfileQuick},
		{"Local scan", "Uploads results to an analysis server", config.ScanProfileLocal},
	}

	profileTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
		Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	profilePrompt := promptui.Select{
		Label:     "Which scan should the pipeline run?",
		Items:     profiles,
		Templates: profileTemplates,
	}

	profileIdx, _, err := profilePrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("profile selection cancelled: %w", err)
	}
	selectedProfile := profiles[profileIdx].Value

	fmt.Println()

	strictnessLevels := []struct {
		Label       string
		Description string
		Value       config.Strictness
	}{
		{"Standard (recommended)", "No new fatal or error issues", config.StrictnessStandard},
		{"Relaxed", "Tolerates some new errors and higher duplication", config.StrictnessRelaxed},
		{"Strict", "No new issues, tight complexity and duplication limits", config.StrictnessStrict},
	}

	strictnessTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
		Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	strictnessPrompt := promptui.Select{
		Label:     "How strict should the quality gate be?",
		Items:     strictnessLevels,
		Templates: strictnessTemplates,
	}

	strictnessIdx, _, err := strictnessPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("strictness selection cancelled: %w", err)
	}
	selectedStrictness := strictnessLevels[strictnessIdx].Value

	fmt.Println()

	outputPrompt := promptui.Prompt{
		Label:   "Output file path",
		Default: defaultConfigPath,
	}

	outputPath, err := outputPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("output path input cancelled: %w", err)
	}
	if outputPath == "" {
		outputPath = defaultConfigPath
	}

	fmt.Println()
	return selectedProfile, selectedStrictness, outputPath, nil
}
