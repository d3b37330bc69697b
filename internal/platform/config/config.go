package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvInt64 is GetEnvInt for byte sizes and other 64-bit values.
func GetEnvInt64(key string, fallback int64) int64 {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvDuration parses a time.Duration ("15s", "2m"), or returns fallback.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}

// Server is the backend configuration, read from the environment.
type Server struct {
	Port            string
	CORSOrigin      string
	LogLevel        string
	LogFormat       string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration

	// StoreDriver selects the document store: "firestore", "sqlite" or "memory".
	StoreDriver         string
	FirestoreProjectID  string
	FirebaseCredentials string
	SQLitePath          string
	PhotosCollection    string

	CloudinaryURL          string
	CloudinaryUploadPreset string
	CloudinaryFolder       string
}

// LoadServer reads the backend configuration with its defaults.
func LoadServer() Server {
	return Server{
		Port:            GetEnv("PORT", "5000"),
		CORSOrigin:      GetEnv("CORS_ORIGIN", "http://localhost:3000"),
		LogLevel:        GetEnv("LOG_LEVEL", "info"),
		LogFormat:       GetEnv("LOG_FORMAT", "json"),
		MaxBodyBytes:    GetEnvInt64("MAX_BODY_BYTES", 15<<20),
		ShutdownTimeout: GetEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		StoreDriver:         GetEnv("STORE_DRIVER", "firestore"),
		FirestoreProjectID:  GetEnv("FIRESTORE_PROJECT_ID", ""),
		FirebaseCredentials: GetEnv("FIREBASE_CREDENTIALS_FILE", ""),
		SQLitePath:          GetEnv("SQLITE_PATH", "photos.db"),
		PhotosCollection:    GetEnv("PHOTOS_COLLECTION", "photos"),

		CloudinaryURL:          GetEnv("CLOUDINARY_URL", ""),
		CloudinaryUploadPreset: GetEnv("CLOUDINARY_UPLOAD_PRESET", ""),
		CloudinaryFolder:       GetEnv("CLOUDINARY_FOLDER", "photo-opp"),
	}
}
