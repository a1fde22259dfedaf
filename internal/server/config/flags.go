package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/commissions/internal/flagx"
)

var serverFlags = []string{
	"-a", "-d", "-s", "-t", "-u", "-p", "-b", "-g", "-e",
	"-redis", "-log-format", "-admins",
	"-review-window", "-counter-window", "-grace-window", "-ticket-window", "-payment-window",
	"-concurrent-resolutions", "-lapse-policy",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN, empty for the in-memory store
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-redis string                  Redis address for sweep locks
//	-log-format string             json, text or logrus
//	-admins string                 comma separated admin user ids
//	-review-window duration        upload review window
//	-counter-window duration       dispute counterproof window
//	-grace-window duration         grace period after the deadline
//	-ticket-window duration        ticket response window
//	-payment-window duration       fee payment window
//	-concurrent-resolutions bool   allow parallel disputes on one target (use -concurrent-resolutions=true)
//	-lapse-policy string           favorSubmitter or escalate
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address for sweep locks")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format: json, text or logrus")
	admins := fs.String("admins", strings.Join(config.AdminUserIDs, ","), "comma separated admin user ids")

	fs.DurationVar(&config.ReviewWindow, "review-window", config.ReviewWindow, "upload review window")
	fs.DurationVar(&config.CounterWindow, "counter-window", config.CounterWindow, "dispute counterproof window")
	fs.DurationVar(&config.GraceWindow, "grace-window", config.GraceWindow, "grace period after the deadline")
	fs.DurationVar(&config.TicketResponseWindow, "ticket-window", config.TicketResponseWindow, "ticket response window")
	fs.DurationVar(&config.PaymentWindow, "payment-window", config.PaymentWindow, "fee payment window")
	fs.BoolVar(&config.AllowConcurrentResolutions, "concurrent-resolutions", config.AllowConcurrentResolutions, "allow parallel disputes on one target")
	fs.StringVar(&config.LapsePolicy, "lapse-policy", config.LapsePolicy, "favorSubmitter or escalate")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.AdminUserIDs = splitList(*admins)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
