// Command tokengen mints bearer tokens for local development against the
// configured signing key.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "breachledger/internal/jwt_token"
	"breachledger/internal/platform/config"
	id "breachledger/pkg/domain"
)

func main() {
	configPath := flag.String("config", os.Getenv("BREACHLEDGER_CONFIG"), "path to a YAML config file")
	user := flag.String("user", "", "user id (uuid)")
	org := flag.String("org", "", "organization id (uuid)")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if err := run(*configPath, *user, *org, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
}

func run(configPath, user, org string, ttl time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		return errors.New("refusing to mint tokens in production")
	}
	userID, err := id.ParseUserID(user)
	if err != nil {
		return err
	}
	orgID, err := id.ParseOrganizationID(org)
	if err != nil {
		return err
	}

	svc := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	token, err := svc.GenerateAccessToken(userID, orgID, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
