package repo

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	rootPathEnvVar = "ELECTOR_PATH"

	envPrefix = "ELECTOR"

	cfgFileName = "elector.toml"

	defaultRepoRoot = "~/.elector"

	LogsDirName = "logs"

	JournalDirName = "journal"

	// DefaultOwner is the development deployer identity written into fresh configs.
	DefaultOwner = "0x00000000000000000000000000000000000E1EC7"
)

// Repo is an elector home directory: the config file plus the journal and
// log directories hanging off it.
type Repo struct {
	Config *Config
}

// Exist reports whether anything, even an unreadable entry, sits at path.
func Exist(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !os.IsNotExist(err)
}

// Load opens the repo at repoRoot, creating it with a default config (and a
// fresh commitment salt) on first use. ELECTOR_* variables override the file.
func Load(repoRoot string) (*Repo, error) {
	root, err := LoadRepoRootFromEnv(repoRoot)
	if err != nil {
		return nil, err
	}

	cfgPath := filepath.Join(root, cfgFileName)
	var cfg *Config
	if Exist(cfgPath) {
		cfg, err = openConfig(root, cfgPath)
	} else {
		cfg, err = initConfig(root, cfgPath)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Check(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", cfgPath)
	}
	return &Repo{Config: cfg}, nil
}

func initConfig(root, cfgPath string) (*Config, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "create repo %s", root)
	}
	cfg := DefaultConfig(root)
	if err := writeConfigWithEnv(cfgPath, cfg); err != nil {
		return nil, errors.Wrap(err, "write default config")
	}
	return cfg, nil
}

func openConfig(root, cfgPath string) (*Config, error) {
	if err := CheckWritable(root); err != nil {
		return nil, err
	}
	cfg := DefaultConfig(root)
	if err := readConfigFromFile(cfgPath, cfg); err != nil {
		return nil, errors.Wrapf(err, "read config %s", cfgPath)
	}
	return cfg, nil
}

// Flush writes the config back, env overrides included.
func (r *Repo) Flush() error {
	return errors.Wrap(writeConfigWithEnv(filepath.Join(r.Config.RepoRoot, cfgFileName), r.Config), "flush config")
}

// JournalPath resolves the journal directory, relative paths hang off the repo root.
func (r *Repo) JournalPath() string {
	return r.resolve(r.Config.Journal.Dir)
}

func (r *Repo) LogsPath() string {
	return r.resolve(LogsDirName)
}

func (r *Repo) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.Config.RepoRoot, p)
}

func writeConfigWithEnv(cfgPath string, config any) error {
	if err := writeConfig(cfgPath, config); err != nil {
		return err
	}
	// env values only surface through viper, so read the file back once
	if err := readConfigFromFile(cfgPath, config); err != nil {
		return errors.Wrap(err, "apply env overrides")
	}
	return writeConfig(cfgPath, config)
}

func writeConfig(cfgPath string, config any) error {
	raw, err := MarshalConfig(config)
	if err != nil {
		return err
	}
	return os.WriteFile(cfgPath, []byte(raw), 0644)
}

// MarshalConfig renders config as indented TOML.
func MarshalConfig(config any) (string, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	enc.SetArraysMultiline(true)
	if err := enc.Encode(config); err != nil {
		return "", errors.Wrap(err, "encode config")
	}
	return buf.String(), nil
}

// LoadRepoRootFromEnv picks the explicit root, then ELECTOR_PATH, then ~/.elector.
func LoadRepoRootFromEnv(repoRoot string) (string, error) {
	switch {
	case repoRoot != "":
		return repoRoot, nil
	case os.Getenv(rootPathEnvVar) != "":
		return os.Getenv(rootPathEnvVar), nil
	default:
		return homedir.Expand(defaultRepoRoot)
	}
}

func readConfigFromFile(cfgPath string, config any) error {
	vp := viper.New()
	vp.SetConfigFile(cfgPath)
	vp.SetConfigType("toml")
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if err := vp.ReadInConfig(); err != nil {
		return err
	}
	return vp.Unmarshal(config)
}

// CheckWritable makes sure dir exists and the current user can create files in it.
func CheckWritable(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return os.Mkdir(dir, 0775)
		}
		return errors.Wrapf(err, "stat repo root %s", dir)
	}

	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		if os.IsPermission(err) {
			return errors.Errorf("%s is not writable by the current user", dir)
		}
		return errors.Wrapf(err, "check writability of %s", dir)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
