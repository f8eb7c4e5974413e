package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	pkgAuth "github.com/lucidrepo/lucid-backend/pkg/auth"
	"github.com/lucidrepo/lucid-backend/pkg/auth/session"
	"github.com/lucidrepo/lucid-backend/pkg/config"
	"github.com/lucidrepo/lucid-backend/pkg/enums"
	"github.com/lucidrepo/lucid-backend/pkg/logger"
	"github.com/lucidrepo/lucid-backend/pkg/redis"
)

// devtoken mints a session token for local calls to the function endpoints,
// or revokes one with -revoke.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "devtoken"})

	_ = godotenv.Load()

	userFlag := flag.String("user", "", "user id (uuid) the token is issued for")
	roleFlag := flag.String("role", string(enums.UserRoleUser), "role claim: user|moderator|admin")
	revokeFlag := flag.String("revoke", "", "token whose session should be revoked")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	if cfg.App.IsProd() {
		fmt.Fprintln(os.Stderr, "devtoken refuses to run against prod")
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	if *revokeFlag != "" {
		claims, err := pkgAuth.ParseAccessToken(cfg.JWT, *revokeFlag)
		requireResource(ctx, logg, "token", err)
		err = sessions.Revoke(ctx, claims.ID)
		requireResource(ctx, logg, "session", err)
		fmt.Println("revoked session " + claims.ID)
		return
	}

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "missing or invalid -user uuid")
		os.Exit(1)
	}
	role, err := enums.ParseUserRole(*roleFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	accessID := session.NewAccessID()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    accessID,
	})
	requireResource(ctx, logg, "token", err)

	err = sessions.Register(ctx, accessID, userID.String())
	requireResource(ctx, logg, "session", err)

	fmt.Println(token)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
