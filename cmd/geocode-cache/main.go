// 地理编码缓存维护工具：人工修正或清除某个地名的缓存坐标（PostgreSQL 与 Redis 同步写入）
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"newsmap/internal/config"
	"newsmap/internal/geocode"
	"newsmap/internal/logger"
	"newsmap/internal/migrate"
	"newsmap/internal/model"
	"newsmap/internal/store"
	"newsmap/internal/utils"
)

type tool struct {
	st *store.Store
	rc *geocode.RedisCache
}

func (t *tool) set(ctx context.Context, place string, c *model.Coords) error {
	key := geocode.CacheKey(place)
	if err := t.st.PutGeocode(ctx, key, c); err != nil {
		return err
	}
	t.rc.Set(ctx, key, c)
	return nil
}

func (t *tool) del(ctx context.Context, place string) (bool, error) {
	key := geocode.CacheKey(place)
	ok, err := t.st.DeleteGeocode(ctx, key)
	if err != nil {
		return false, err
	}
	return ok, t.rc.Delete(ctx, key)
}

func (t *tool) get(ctx context.Context, place string) (string, error) {
	c, ok, err := t.st.GetGeocode(ctx, geocode.CacheKey(place))
	if err != nil {
		return "", err
	}
	return describe(c, ok), nil
}

func describe(c *model.Coords, ok bool) string {
	switch {
	case !ok:
		return "(not cached)"
	case c == nil:
		return "(unresolvable)"
	}
	return c.Key()
}

// parseSet：set <lat> <lon> <地名…>，地名可含空格
func parseSet(parts []string) (string, *model.Coords, error) {
	if len(parts) < 4 {
		return "", nil, fmt.Errorf("usage: set <lat> <lon> <place>")
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || lat < -90 || lat > 90 {
		return "", nil, fmt.Errorf("bad lat %q", parts[1])
	}
	lon, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || lon < -180 || lon > 180 {
		return "", nil, fmt.Errorf("bad lon %q", parts[2])
	}
	return strings.Join(parts[3:], " "), &model.Coords{Lat: lat, Lon: lon}, nil
}

func printHelp() {
	fmt.Println("commands:")
	fmt.Println("  set <lat> <lon> <place>")
	fmt.Println("  null <place>")
	fmt.Println("  del <place>")
	fmt.Println("  get <place>")
	fmt.Println("  list [limit]")
	fmt.Println("  help")
	fmt.Println("  exit")
}

func main() {
	logger.Setup()
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "--config" && i+1 < len(os.Args) {
			_ = os.Setenv("NEWSMAP_CONFIG", os.Args[i+1])
			i++
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	if !cfg.Postgres.Enabled {
		fmt.Println("postgres is not configured (set PG_DSN or PG_HOST)")
		os.Exit(1)
	}
	ctx := context.Background()
	db, err := utils.OpenPostgres(ctx, cfg.Postgres.DSN)
	if err != nil {
		fmt.Println("db error:", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		fmt.Println("schema error:", err)
		os.Exit(1)
	}
	t := &tool{st: store.AttachDB(db)}
	if cfg.Redis.Enabled {
		rc, err := utils.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			fmt.Println("redis unavailable, postgres only:", err)
		} else {
			defer rc.Close()
			t.rc = geocode.NewRedisCache(rc)
		}
	}

	fmt.Println("geocode cache cli ready")
	printHelp()
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		switch strings.ToLower(parts[0]) {
		case "exit", "quit":
			return
		case "help":
			printHelp()
		case "set":
			place, c, err := parseSet(parts)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := t.set(ctx, place, c); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("ok")
		case "null":
			if len(parts) < 2 {
				fmt.Println("usage: null <place>")
				continue
			}
			if err := t.set(ctx, strings.Join(parts[1:], " "), nil); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("ok")
		case "del":
			if len(parts) < 2 {
				fmt.Println("usage: del <place>")
				continue
			}
			ok, err := t.del(ctx, strings.Join(parts[1:], " "))
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if !ok {
				fmt.Println("not found")
				continue
			}
			fmt.Println("ok")
		case "get":
			if len(parts) < 2 {
				fmt.Println("usage: get <place>")
				continue
			}
			s, err := t.get(ctx, strings.Join(parts[1:], " "))
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println(s)
		case "list":
			limit := 20
			if len(parts) > 1 {
				if n, e := strconv.Atoi(parts[1]); e == nil && n > 0 {
					limit = n
				}
			}
			list, err := t.st.ListGeocode(ctx, limit)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, e := range list {
				fmt.Printf("%s -> %s (%s)\n", e.Key, describe(e.Coords, true), e.UpdatedAt.Format("2006-01-02 15:04"))
			}
		default:
			fmt.Println("unknown command")
			printHelp()
		}
	}
}
