package repo

import (
	"crypto/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

type Config struct {
	RepoRoot string   `mapstructure:"-" toml:"-"`
	Owner    string   `mapstructure:"owner" toml:"owner"`
	Log      Log      `mapstructure:"log" toml:"log"`
	Election Election `mapstructure:"election" toml:"election"`
	Journal  Journal  `mapstructure:"journal" toml:"journal"`
	Events   Events   `mapstructure:"events" toml:"events"`
}

type Log struct {
	Level        string        `mapstructure:"level" toml:"level"`
	Filename     string        `mapstructure:"filename" toml:"filename"`
	ReportCaller bool          `mapstructure:"report_caller" toml:"report_caller"`
	MaxAge       time.Duration `mapstructure:"max_age" toml:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time" toml:"rotation_time"`
}

type Election struct {
	// cap on active candidates per election cycle
	MaxCandidates uint64 `mapstructure:"max_candidates" toml:"max_candidates"`
	// active candidates required before voting may start
	MinCandidates uint64 `mapstructure:"min_candidates" toml:"min_candidates"`
	// 32 byte hex salt mixed into every voter verification hash
	CommitmentSalt string `mapstructure:"commitment_salt" toml:"commitment_salt"`
}

type Journal struct {
	Enabled     bool          `mapstructure:"enabled" toml:"enabled"`
	Dir         string        `mapstructure:"dir" toml:"dir"`
	OpenRetries uint          `mapstructure:"open_retries" toml:"open_retries"`
	OpenBackoff time.Duration `mapstructure:"open_backoff" toml:"open_backoff"`
}

type Events struct {
	BufferSize int `mapstructure:"buffer_size" toml:"buffer_size"`
}

func DefaultConfig(repoRoot string) *Config {
	return &Config{
		RepoRoot: repoRoot,
		Owner:    DefaultOwner,
		Log: Log{
			Level:        "info",
			Filename:     "elector.log",
			ReportCaller: false,
			MaxAge:       30 * 24 * time.Hour,
			RotationTime: 24 * time.Hour,
		},
		Election: Election{
			MaxCandidates:  50,
			MinCandidates:  2,
			CommitmentSalt: NewCommitmentSalt(),
		},
		Journal: Journal{
			Enabled:     true,
			Dir:         JournalDirName,
			OpenRetries: 5,
			OpenBackoff: time.Second,
		},
		Events: Events{
			BufferSize: 128,
		},
	}
}

// NewCommitmentSalt draws a fresh 32 byte salt for a new repo.
func NewCommitmentSalt() string {
	var salt common.Hash
	if _, err := rand.Read(salt[:]); err != nil {
		panic(errors.Wrap(err, "read random salt"))
	}
	return salt.Hex()
}

// OwnerAddress returns the deployer identity the engine is seeded with.
func (c *Config) OwnerAddress() common.Address {
	return common.HexToAddress(c.Owner)
}

// Salt decodes the commitment salt, which must be 32 non-zero bytes.
func (c *Config) Salt() (common.Hash, error) {
	if c.Election.CommitmentSalt == "" {
		return common.Hash{}, errors.New("commitment salt is empty")
	}
	raw, err := hexutil.Decode(c.Election.CommitmentSalt)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "decode commitment salt")
	}
	if len(raw) != common.HashLength {
		return common.Hash{}, errors.Errorf("commitment salt must be %d bytes, got %d", common.HashLength, len(raw))
	}
	salt := common.BytesToHash(raw)
	if salt == (common.Hash{}) {
		return common.Hash{}, errors.New("commitment salt must not be zero")
	}
	return salt, nil
}

func (c *Config) Check() error {
	if !common.IsHexAddress(c.Owner) {
		return errors.Errorf("owner %q is not a hex address", c.Owner)
	}
	if c.OwnerAddress() == (common.Address{}) {
		return errors.New("owner must not be the zero address")
	}
	if _, err := c.Salt(); err != nil {
		return err
	}
	if c.Election.MinCandidates == 0 {
		return errors.New("election.min_candidates must be positive")
	}
	if c.Election.MaxCandidates < c.Election.MinCandidates {
		return errors.Errorf("election.max_candidates %d is less than min_candidates %d",
			c.Election.MaxCandidates, c.Election.MinCandidates)
	}
	if c.Journal.Enabled && c.Journal.Dir == "" {
		return errors.New("journal.dir is required when the journal is enabled")
	}
	return nil
}
