package main

import (
	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "JSON or YAML server configuration file",
		EnvVars: []string{"COMMISSIONS_CONFIG"},
	}
	dsnFlag = &cli.StringFlag{
		Name:  "dsn",
		Usage: "PostgreSQL DSN, overrides the config file; empty selects the in-memory store",
	}
	bucketFlag = &cli.StringFlag{
		Name:  "s3-bucket",
		Usage: "object storage bucket, overrides the config file; empty selects the in-memory store",
	}
	redisFlag = &cli.StringFlag{
		Name:  "redis",
		Usage: "Redis address for sweep locks",
	}
	adminsFlag = &cli.StringSliceFlag{
		Name:  "admins",
		Usage: "user ids treated as admins",
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "json, text or logrus",
	}

	amountFlag = &cli.Int64Flag{
		Name:     "amount",
		Usage:    "amount in cents",
		Required: true,
	}
	actingAdminFlag = &cli.StringFlag{
		Name:     "admin",
		Usage:    "admin user id the entry is recorded for",
		Required: true,
	}

	addrFlag = &cli.StringFlag{
		Name:  "addr",
		Usage: "server address",
		Value: "localhost:50051",
	}
	tokenFlag = &cli.StringFlag{
		Name:    "token",
		Usage:   "access token",
		EnvVars: []string{"COMMISSIONS_TOKEN"},
	}
)
