package config

import (
	"os"
	"strconv"
	"strings"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthSecret string

	// bcrypt hashes for the built-in accounts; empty disables the account.
	TeacherUser     string
	TeacherPassHash string
	StudentUser     string
	StudentPassHash string
	AdminUser       string
	AdminPassHash   string

	// Grade-item range the rubric maps onto when the caller sends none.
	GradeMin      float64
	GradeMax      float64
	AllowDecimals bool

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		Mode:     mode,
		HTTPAddr: addr,
		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		AuthSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),

		TeacherUser: envOr("TEACHER_USER", "teacher"),
		// dev default hashes correspond to "teacher" / "student" / "admin"
		TeacherPassHash: envOr("TEACHER_PASS_HASH", "$2y$12$ONZUBKPBW3jVGO8VYBsSYuXyo28G87zbxZ2cUQ1ckW0tPdK1Dw7Fq"),
		StudentUser:     envOr("STUDENT_USER", "student"),
		StudentPassHash: envOr("STUDENT_PASS_HASH", "$2y$12$4d1t7E4ZhSsm0LxUxtUCY.aF2krefkIcQcIfHcqcoo7iFmYXY/8hG"),
		AdminUser:       envOr("ADMIN_USER", "admin"),
		AdminPassHash:   envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),

		GradeMin:      envFloat("GRADE_MIN", 0),
		GradeMax:      envFloat("GRADE_MAX", 100),
		AllowDecimals: envBool("ALLOW_DECIMALS", false),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://grading.example.org"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
