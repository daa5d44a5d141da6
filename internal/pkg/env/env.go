package env

import (
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

var Env map[string]string

func GetEnv(key, def string) string {
	// First check our loaded Env map
	if val, ok := Env[key]; ok {
		return val
	}
	// Fallback to OS environment variables (for Docker/tests)
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt returns an integer setting or def when unset or invalid.
func GetEnvInt(key string, def int) int {
	raw := GetEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Warnf("[Env] %s=%q is not an integer, using %d", key, raw, def)
		return def
	}
	return n
}

// GetEnvDuration reads a duration given in seconds.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	secs := GetEnvInt(key, -1)
	if secs < 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func SetupEnvFile() {
	// Look for .env file in project root
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/creatorpay to project root
		"../../../.env", // Fallback for deeper nesting
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	// Containers inject settings through the process environment.
	Env = map[string]string{}
	log.Warn("[Env] no .env file found, using process environment")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
