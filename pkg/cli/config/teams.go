package config

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Teams holds the path of the team standup definitions
type Teams struct {
	path string
}

func (x *Teams) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "teams",
			Usage:       "Team standup definitions: a TOML or YAML file, or a directory of them",
			Category:    "Teams",
			Sources:     cli.EnvVars("HUDDLE_TEAMS"),
			Destination: &x.path,
		},
	}
}

// Path returns the configured path
func (x *Teams) Path() string {
	return x.path
}

// teamsFile is the on-disk layout. TOML uses [[team]] tables, YAML a teams list.
type teamsFile struct {
	Teams []teamEntry `toml:"team" yaml:"teams"`
}

type memberEntry struct {
	ID     string `toml:"id" yaml:"id"`
	UserID string `toml:"slack_user_id" yaml:"slack_user_id"`
	Name   string `toml:"name" yaml:"name"`
}

type teamEntry struct {
	ID                    string        `toml:"id" yaml:"id"`
	Name                  string        `toml:"name" yaml:"name"`
	ChannelID             string        `toml:"channel_id" yaml:"channel_id"`
	Weekdays              []string      `toml:"weekdays" yaml:"weekdays"`
	Time                  string        `toml:"time" yaml:"time"`
	Timezone              string        `toml:"timezone" yaml:"timezone"`
	Questions             []string      `toml:"questions" yaml:"questions"`
	ResponseTimeoutHours  int           `toml:"response_timeout_hours" yaml:"response_timeout_hours"`
	ReminderMinutesBefore int           `toml:"reminder_minutes_before" yaml:"reminder_minutes_before"`
	Members               []memberEntry `toml:"members" yaml:"members"`
	Active                *bool         `toml:"active" yaml:"active"`
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday parses an English weekday name or its three letter abbreviation
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, goerr.Wrap(ErrInvalidWeekday, "unknown weekday", goerr.V("weekday", s))
	}
	return d, nil
}

func (e *teamEntry) toModel() (*model.StandupConfig, error) {
	cfg := &model.StandupConfig{
		Version:               model.ConfigSnapshotVersion,
		TeamID:                types.TeamID(e.ID),
		TeamName:              e.Name,
		ChannelID:             e.ChannelID,
		TimeLocal:             e.Time,
		Timezone:              e.Timezone,
		Questions:             e.Questions,
		ResponseTimeoutHours:  e.ResponseTimeoutHours,
		ReminderMinutesBefore: e.ReminderMinutesBefore,
		Active:                e.Active == nil || *e.Active,
	}

	for _, w := range e.Weekdays {
		d, err := ParseWeekday(w)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid team", goerr.V(TeamIDKey, e.ID))
		}
		cfg.Weekdays = append(cfg.Weekdays, d)
	}
	for _, m := range e.Members {
		cfg.Members = append(cfg.Members, model.Member{
			ID:             types.MemberID(m.ID),
			PlatformUserID: m.UserID,
			Name:           m.Name,
		})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeTeamsFile(path string) ([]teamEntry, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read teams file", goerr.V(ConfigPathKey, path))
	}

	var file teamsFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, goerr.Wrap(err, "failed to parse TOML teams file", goerr.V(ConfigPathKey, path))
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, goerr.Wrap(err, "failed to parse YAML teams file", goerr.V(ConfigPathKey, path))
		}
	default:
		return nil, goerr.Wrap(ErrUnsupportedFormat, "teams file must be .toml, .yaml or .yml", goerr.V(ConfigPathKey, path))
	}
	return file.Teams, nil
}

func isTeamsFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml", ".yaml", ".yml":
		return true
	}
	return false
}

// teamsFiles lists the files under path, which may be a file or a directory
func teamsFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to stat teams path", goerr.V(ConfigPathKey, path))
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read teams directory", goerr.V(ConfigPathKey, path))
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !isTeamsFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Load reads and validates every team definition. It returns nil when no
// path is configured.
func (x *Teams) Load() ([]*model.StandupConfig, error) {
	if x.path == "" {
		return nil, nil
	}

	files, err := teamsFiles(x.path)
	if err != nil {
		return nil, err
	}

	var configs []*model.StandupConfig
	seen := make(map[types.TeamID]string)
	for _, file := range files {
		entries, err := decodeTeamsFile(file)
		if err != nil {
			return nil, err
		}
		for i := range entries {
			cfg, err := entries[i].toModel()
			if err != nil {
				return nil, goerr.Wrap(err, "invalid team definition", goerr.V(ConfigPathKey, file))
			}
			if prev, ok := seen[cfg.TeamID]; ok {
				return nil, goerr.Wrap(ErrDuplicateTeamID, "team defined twice",
					goerr.V(TeamIDKey, cfg.TeamID), goerr.V("first", prev), goerr.V("second", file))
			}
			seen[cfg.TeamID] = file
			configs = append(configs, cfg)
		}
	}
	return configs, nil
}

// Apply loads the definitions and upserts them into the repository
func (x *Teams) Apply(ctx context.Context, repo interfaces.Repository) (int, error) {
	configs, err := x.Load()
	if err != nil {
		return 0, err
	}

	for _, cfg := range configs {
		if err := repo.StandupConfig().Put(ctx, cfg); err != nil {
			return 0, goerr.Wrap(err, "failed to save team config", goerr.V(TeamIDKey, cfg.TeamID))
		}
		logging.From(ctx).Info("Team standup loaded",
			"team_id", cfg.TeamID,
			"channel_id", cfg.ChannelID,
			"time", cfg.TimeLocal,
			"timezone", cfg.Timezone,
			"members", len(cfg.Members),
			"active", cfg.Active,
		)
	}
	return len(configs), nil
}
