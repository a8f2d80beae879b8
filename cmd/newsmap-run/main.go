// 单次运行工具：抓取、定位并聚类一次，把结果 JSON 写到标准输出（或 -o 指定文件）
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"newsmap/internal/app"
	"newsmap/internal/config"
	"newsmap/internal/logger"
)

func main() {
	out := flag.String("o", "", "output file (default stdout)")
	boundaries := flag.String("boundaries", "", "override boundary file")
	flag.Parse()

	cfg, err := config.Load()
	l := logger.Setup()
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	if *boundaries != "" {
		cfg.Boundaries.File = *boundaries
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		l.Error("app_build_error", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	res, err := a.Pipeline.Run(ctx)
	if err != nil {
		l.Error("run_error", "err", err)
		a.Close()
		os.Exit(1)
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			l.Error("output_error", "err", err)
			a.Close()
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Clusters); err != nil {
		l.Error("encode_error", "err", err)
		return
	}
	l.Info("run_done", "run_id", res.RunID, "articles", res.Articles, "located", res.Located, "clusters", len(res.Clusters))
}
