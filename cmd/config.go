package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "checkbugs"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage checkbugs configuration.

Running bare 'checkbugs config' is the same as 'checkbugs config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# checkbugs configuration
# See: checkbugs config show (for effective values and sources)

bugzilla:
  # Bugzilla base URL (default: https://bugzilla.redhat.com)
  url: "{{ .BugzillaURL }}"

  # Product whose bugs are checked
  product: "{{ .BugzillaProduct }}"

  # Your Bugzilla login. Without it private bugs would silently be left out.
  user: "{{ .BugzillaUser }}"

  # API key from Bugzilla preferences (or set CHECKBUGS_BUGZILLA_API_KEY)
  # api_key: ""

gerrit:
  # Gerrit ssh host and port used for change queries
  host: "{{ .GerritHost }}"
  ssh_port: {{ .GerritSSHPort }}

  # Gerrit web URL used by review-stats
  url: "{{ .GerritURL }}"

  # Only changes for this project must be reachable from HEAD
  project: "{{ .GerritProject }}"

git:
  # Ref marking the last known-good point for Bug: trailer scans
  upstream_ref: "{{ .UpstreamRef }}"

  # Release tags look like <tag_prefix>MAJOR.MINOR
  tag_prefix: "{{ .TagPrefix }}"

  # Branches starting with this prefix are maintenance branches
  maintenance_prefix: "{{ .MaintenancePrefix }}"

check:
  # Feature branches that are never merged into HEAD
  abandoned_branches:
{{- range .AbandonedBranches }}
    - {{ . }}
{{- end }}
`

type configTemplateData struct {
	BugzillaURL       string
	BugzillaProduct   string
	BugzillaUser      string
	GerritHost        string
	GerritSSHPort     int
	GerritURL         string
	GerritProject     string
	UpstreamRef       string
	TagPrefix         string
	MaintenancePrefix string
	AbandonedBranches []string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		BugzillaURL:       viper.GetString("bugzilla.url"),
		BugzillaProduct:   viper.GetString("bugzilla.product"),
		BugzillaUser:      viper.GetString("bugzilla.user"),
		GerritHost:        viper.GetString("gerrit.host"),
		GerritSSHPort:     viper.GetInt("gerrit.ssh_port"),
		GerritURL:         viper.GetString("gerrit.url"),
		GerritProject:     viper.GetString("gerrit.project"),
		UpstreamRef:       viper.GetString("git.upstream_ref"),
		TagPrefix:         viper.GetString("git.tag_prefix"),
		MaintenancePrefix: viper.GetString("git.maintenance_prefix"),
		AbandonedBranches: viper.GetStringSlice("check.abandoned_branches"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "bugzilla.url", EnvVar: "CHECKBUGS_BUGZILLA_URL"},
	{Key: "bugzilla.product", EnvVar: "CHECKBUGS_BUGZILLA_PRODUCT"},
	{Key: "bugzilla.user", EnvVar: "CHECKBUGS_BUGZILLA_USER"},
	{Key: "bugzilla.api_key", EnvVar: "CHECKBUGS_BUGZILLA_API_KEY", Secret: true},
	{Key: "gerrit.host", EnvVar: "CHECKBUGS_GERRIT_HOST"},
	{Key: "gerrit.ssh_port", EnvVar: "CHECKBUGS_GERRIT_SSH_PORT"},
	{Key: "gerrit.url", EnvVar: "CHECKBUGS_GERRIT_URL"},
	{Key: "gerrit.project", EnvVar: "CHECKBUGS_GERRIT_PROJECT"},
	{Key: "gerrit.non_human_reviewers", EnvVar: "CHECKBUGS_GERRIT_NON_HUMAN_REVIEWERS"},
	{Key: "git.remote", EnvVar: "CHECKBUGS_GIT_REMOTE"},
	{Key: "git.upstream_ref", EnvVar: "CHECKBUGS_GIT_UPSTREAM_REF"},
	{Key: "git.tag_prefix", EnvVar: "CHECKBUGS_GIT_TAG_PREFIX"},
	{Key: "git.maintenance_prefix", EnvVar: "CHECKBUGS_GIT_MAINTENANCE_PREFIX"},
	{Key: "check.abandoned_branches", EnvVar: "CHECKBUGS_CHECK_ABANDONED_BRANCHES"},
	{Key: "stats.alpha", EnvVar: "CHECKBUGS_STATS_ALPHA"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret && viper.GetString(k.Key) != "" {
			val = "********"
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-28s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set: set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'checkbugs config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
