// Package config loads the server settings from a YAML file. A missing file
// yields the defaults, так что сервер стартует без конфига.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig is the network and session section.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	MaxPlayers       int           `yaml:"max_players"`
	MaxConnections   int           `yaml:"max_connections"`
	MaxLoginAttempts int           `yaml:"max_login_attempts"`
	PasswordSalt     string        `yaml:"password_salt"`
	EnforceSequence  bool          `yaml:"enforce_sequence"`
	PingRate         time.Duration `yaml:"ping_rate"`
	GeneratePub      bool          `yaml:"generate_pub"`
	// Minimum interval between reconnects from one IP.
	IPReconnectLimit time.Duration `yaml:"ip_reconnect_limit"`
}

// WorldConfig tunes the simulation.
type WorldConfig struct {
	SeeDistance         int           `yaml:"see_distance"`
	StatPointsPerLevel  int           `yaml:"stat_points_per_level"`
	SkillPointsPerLevel int           `yaml:"skill_points_per_level"`
	TickRate            time.Duration `yaml:"tick_rate"`
	DrainHPDamage       float64       `yaml:"drain_hp_damage"`
	DrainTPDamage       float64       `yaml:"drain_tp_damage"`
	InfoRevealsDrops    bool          `yaml:"info_reveals_drops"`
	// How often the periodic save scheduler flushes online characters.
	SaveInterval time.Duration `yaml:"save_interval"`
	// Ticks between timed map effect applications.
	DrainRate int `yaml:"drain_rate"`
}

// NpcConfig tunes NPC behavior.
type NpcConfig struct {
	Speeds           [7]int        `yaml:"speeds"` // act ticks required per speed class
	TalkRate         time.Duration `yaml:"talk_rate"`
	ActRate          time.Duration `yaml:"act_rate"`
	ChaseDistance    int           `yaml:"chase_distance"`
	BoredTimer       time.Duration `yaml:"bored_timer"`
	InstantSpawn     bool          `yaml:"instant_spawn"`
	FreezeOnEmptyMap bool          `yaml:"freeze_on_empty_map"`
}

// WeaponRange overrides the attack reach of one weapon.
type WeaponRange struct {
	Weapon int  `yaml:"weapon"`
	Range  int  `yaml:"range"`
	Arrows bool `yaml:"arrows"`
}

// CombatConfig holds the weapon range table.
type CombatConfig struct {
	WeaponRanges []WeaponRange `yaml:"weapon_ranges"`
}

// BoardConfig bounds town board posting.
type BoardConfig struct {
	MaxPosts         int           `yaml:"max_posts"`
	AdminBoard       int           `yaml:"admin_board"`
	AdminMaxPosts    int           `yaml:"admin_max_posts"`
	MaxRecentPosts   int           `yaml:"max_recent_posts"`
	MaxUserPosts     int           `yaml:"max_user_posts"`
	MaxSubjectLength int           `yaml:"max_subject_length"`
	MaxPostLength    int           `yaml:"max_post_length"`
	RecentPostTime   time.Duration `yaml:"recent_post_time"`
}

// GuildConfig tunes guild management.
type GuildConfig struct {
	MinPlayers               int    `yaml:"min_players"`
	CreateCost               int    `yaml:"create_cost"`
	RecruitCost              int    `yaml:"recruit_cost"`
	MinDeposit               int    `yaml:"min_deposit"`
	EditRank                 int    `yaml:"edit_rank"`
	DefaultLeaderRankName    string `yaml:"default_leader_rank_name"`
	DefaultRecruiterRankName string `yaml:"default_recruiter_rank_name"`
	DefaultNewMemberRankName string `yaml:"default_new_member_rank_name"`
}

// MarriageConfig tunes the wedding ceremony.
type MarriageConfig struct {
	CeremonyStartDelaySeconds int `yaml:"ceremony_start_delay_seconds"`
	MfxID                     int `yaml:"mfx_id"`
	RingItemID                int `yaml:"ring_item_id"`
	CelebrationEffectID       int `yaml:"celebration_effect_id"`
}

// ChestConfig bounds chest contents.
type ChestConfig struct {
	Slots int `yaml:"slots"`
}

// RescueConfig is where characters land when their map is missing.
type RescueConfig struct {
	Map int `yaml:"map"`
	X   int `yaml:"x"`
	Y   int `yaml:"y"`
}

// LimitsConfig holds world-wide caps.
type LimitsConfig struct {
	MaxItem      int `yaml:"max_item"`
	MaxPartySize int `yaml:"max_party_size"`
}

// BankConfig bounds bank stacks.
type BankConfig struct {
	MaxItemAmount int `yaml:"max_item_amount"`
}

// AutoPickupConfig toggles walking over items to pick them up.
type AutoPickupConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AccountConfig tunes account creation.
type AccountConfig struct {
	DelayTime       time.Duration `yaml:"delay_time"`
	EmailValidation bool          `yaml:"email_validation"`
}

// NewCharacterConfig is the starting point of fresh characters.
type NewCharacterConfig struct {
	Home           string `yaml:"home"`
	SpawnMap       int    `yaml:"spawn_map"`
	SpawnX         int    `yaml:"spawn_x"`
	SpawnY         int    `yaml:"spawn_y"`
	SpawnDirection int    `yaml:"spawn_direction"`
}

// JailConfig is where misbehaving characters are sent.
type JailConfig struct {
	Map int `yaml:"map"`
	X   int `yaml:"x"`
	Y   int `yaml:"y"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Config is the full settings object.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	World        WorldConfig        `yaml:"world"`
	Npcs         NpcConfig          `yaml:"npcs"`
	Combat       CombatConfig       `yaml:"combat"`
	Board        BoardConfig        `yaml:"board"`
	Guild        GuildConfig        `yaml:"guild"`
	Marriage     MarriageConfig     `yaml:"marriage"`
	Chest        ChestConfig        `yaml:"chest"`
	Rescue       RescueConfig       `yaml:"rescue"`
	Jail         JailConfig         `yaml:"jail"`
	Limits       LimitsConfig       `yaml:"limits"`
	Bank         BankConfig         `yaml:"bank"`
	AutoPickup   AutoPickupConfig   `yaml:"auto_pickup"`
	Account      AccountConfig      `yaml:"account"`
	NewCharacter NewCharacterConfig `yaml:"new_character"`
	Database     DatabaseConfig     `yaml:"database"`

	LogLevel    string `yaml:"log_level"`
	DataDir     string `yaml:"data_dir"`
	MapDir      string `yaml:"map_dir"`
	FormulaFile string `yaml:"formula_file"`
}

// Default returns the full default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8078,
			MaxPlayers:       200,
			MaxConnections:   300,
			MaxLoginAttempts: 3,
			PasswordSalt:     "change-me",
			EnforceSequence:  true,
			PingRate:         60 * time.Second,
			IPReconnectLimit: time.Second,
		},
		World: WorldConfig{
			SeeDistance:         11,
			StatPointsPerLevel:  3,
			SkillPointsPerLevel: 1,
			TickRate:            120 * time.Millisecond,
			DrainHPDamage:       0.15,
			DrainTPDamage:       0.1,
			SaveInterval:        5 * time.Minute,
			DrainRate:           25,
		},
		Npcs: NpcConfig{
			Speeds:        [7]int{7, 11, 15, 24, 38, 58, 0},
			TalkRate:      6 * time.Second,
			ActRate:       120 * time.Millisecond,
			ChaseDistance: 10,
			BoredTimer:    30 * time.Second,
		},
		Board: BoardConfig{
			MaxPosts:         20,
			AdminBoard:       8,
			AdminMaxPosts:    100,
			MaxRecentPosts:   2,
			MaxUserPosts:     6,
			MaxSubjectLength: 32,
			MaxPostLength:    2048,
			RecentPostTime:   30 * time.Minute,
		},
		Guild: GuildConfig{
			MinPlayers:               10,
			CreateCost:               50_000,
			RecruitCost:              1_000,
			MinDeposit:               1_000,
			EditRank:                 1,
			DefaultLeaderRankName:    "Leader",
			DefaultRecruiterRankName: "Recruiter",
			DefaultNewMemberRankName: "New Member",
		},
		Marriage: MarriageConfig{
			CeremonyStartDelaySeconds: 60,
			MfxID:                     10,
			RingItemID:                374,
			CelebrationEffectID:       11,
		},
		Chest:  ChestConfig{Slots: 5},
		Rescue: RescueConfig{Map: 4, X: 24, Y: 24},
		Jail:   JailConfig{Map: 76, X: 9, Y: 11},
		Limits: LimitsConfig{MaxItem: 10_000_000, MaxPartySize: 9},
		Bank:   BankConfig{MaxItemAmount: 200_000_000},
		Account: AccountConfig{
			DelayTime: 2 * time.Second,
		},
		NewCharacter: NewCharacterConfig{
			Home:     "Wanderer",
			SpawnMap: 192,
			SpawnX:   6,
			SpawnY:   6,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "eoserv",
			Password: "eoserv",
			DBName:   "eoserv",
			SSLMode:  "disable",
		},
		LogLevel:    "info",
		DataDir:     "data/pub",
		MapDir:      "data/maps",
		FormulaFile: "data/formulas.lua",
	}
}

// Load reads config from a YAML file. A missing file returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// WeaponRangeFor returns the configured reach of a weapon and whether it
// needs arrows. Unlisted weapons reach one tile.
func (c *Config) WeaponRangeFor(weaponID int) (int, bool) {
	for _, wr := range c.Combat.WeaponRanges {
		if wr.Weapon == weaponID {
			return wr.Range, wr.Arrows
		}
	}
	return 1, false
}
