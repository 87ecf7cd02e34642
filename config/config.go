package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. Monetary amounts are in cents.
type Config struct {
	// Database configuration
	DatabaseURL string

	// Betting rules
	MinBet        int64   // Minimum wager per question
	MaxBet        int64   // Maximum wager per question
	WinRate       float64 // House-edge probability that a wager settles as a win
	WinMultiplier float64 // Credit multiplier applied to the stake on a win

	// Deposit / withdrawal rules
	MinDeposit    int64
	MinWithdrawal int64

	// New account bonus (locked until first approved deposit)
	StartingBonus int64

	// Security gate rules
	MaxDailyQuizzes    int
	MaxHourlyQuizzes   int
	MinSessionSpacing  time.Duration
	RapidAnswerTime    time.Duration // Answers faster than this count as rapid
	RapidAnswerWindow  time.Duration // Trailing window for rapid-answer strikes
	RapidAnswerStrikes int
	BlockCacheTTL      time.Duration
	DefaultBlockTime   time.Duration

	// Tournament rules
	TournamentFeeRate  float64
	TournamentCacheTTL time.Duration
	FeeAccountID       string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// Best effort; real environment variables win over .env
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Betting defaults: $0.10 - $10 per question, 40% win rate,
		// double return on a win
		MinBet:        10,
		MaxBet:        1000,
		WinRate:       0.4,
		WinMultiplier: 2.0,

		MinDeposit:    100,
		MinWithdrawal: 1000,
		StartingBonus: 5000,

		MaxDailyQuizzes:    10,
		MaxHourlyQuizzes:   3,
		MinSessionSpacing:  30 * time.Second,
		RapidAnswerTime:    2 * time.Second,
		RapidAnswerWindow:  60 * time.Second,
		RapidAnswerStrikes: 3,
		BlockCacheTTL:      30 * time.Second,
		DefaultBlockTime:   24 * time.Hour,

		TournamentFeeRate:  0.20,
		TournamentCacheTTL: 30 * time.Second,
		FeeAccountID:       "system:fees",

		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if v := os.Getenv("MIN_BET"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MinBet = parsed
		}
	}
	if v := os.Getenv("MAX_BET"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MaxBet = parsed
		}
	}
	if v := os.Getenv("WIN_RATE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			config.WinRate = parsed
		}
	}
	if v := os.Getenv("WIN_MULTIPLIER"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			config.WinMultiplier = parsed
		}
	}
	if v := os.Getenv("MIN_DEPOSIT"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MinDeposit = parsed
		}
	}
	if v := os.Getenv("MIN_WITHDRAWAL"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MinWithdrawal = parsed
		}
	}
	if v := os.Getenv("STARTING_BONUS"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.StartingBonus = parsed
		}
	}
	if v := os.Getenv("MAX_DAILY_QUIZZES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			config.MaxDailyQuizzes = parsed
		}
	}
	if v := os.Getenv("TOURNAMENT_FEE_RATE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			config.TournamentFeeRate = parsed
		}
	}

	if config.WinRate < 0 || config.WinRate > 1 {
		return nil, fmt.Errorf("WIN_RATE must be between 0 and 1")
	}
	if config.TournamentFeeRate < 0 || config.TournamentFeeRate >= 1 {
		return nil, fmt.Errorf("TOURNAMENT_FEE_RATE must be in [0, 1)")
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
