package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"whiteboard-backend/internal/cache"
	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/database"
	"whiteboard-backend/internal/permission"
	"whiteboard-backend/internal/store"
)

// 권한 수동 부여 도구 (모더레이터가 잠긴 리소스 복구용)
//
//	grant_scope -kind whiteboard -key <id> -group user -uid <uid> -scopes read,write,moderator
func main() {
	kindFlag := flag.String("kind", "whiteboard", "resource kind (chat|session|whiteboard)")
	keyFlag := flag.String("key", "", "resource key")
	groupFlag := flag.String("group", "user", "target group (anonymous|loggedIn|user)")
	uidFlag := flag.String("uid", "", "subject id (required for the user group)")
	scopesFlag := flag.String("scopes", "", "comma-separated capabilities to grant")
	flag.Parse()

	if *keyFlag == "" || *scopesFlag == "" {
		flag.Usage()
		log.Fatal("❌ -key and -scopes are required")
	}

	// Load environment variables
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	rdb, err := cache.Connect(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	st, err := store.OpenDurable(db, rdb)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	kind := permission.ResourceKind(*kindFlag)
	grants := make(map[permission.Capability]bool)
	for _, s := range strings.Split(*scopesFlag, ",") {
		grants[permission.Capability(strings.TrimSpace(s))] = true
	}
	scopes := permission.NewScopeSet(kind, grants)
	if scopes.Empty() {
		log.Fatalf("❌ No valid capabilities in %q for kind %q", *scopesFlag, kind)
	}

	perms := permission.NewService(st)
	if err := perms.AddScope(context.Background(), *keyFlag, kind, scopes, permission.Group(*groupFlag), *uidFlag); err != nil {
		log.Fatalf("❌ Grant failed: %v", err)
	}

	log.Printf("✅ Granted %v to %s/%s (group %s, uid %q)", scopes.Capabilities(), kind, *keyFlag, *groupFlag, *uidFlag)
}
