package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/park285/cheese-fics/internal/adapter/dtoconv"
	"github.com/park285/cheese-fics/internal/config"
	"github.com/park285/cheese-fics/internal/fics"
	"github.com/park285/cheese-fics/internal/ficsgame"
	"github.com/park285/cheese-fics/internal/msgcat"
	"github.com/park285/cheese-fics/internal/obslog"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	command := flag.String("command", "games", "command to run")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("env file error: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = obslog.Sync() }()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := fics.New(fics.Options{
		Host:           cfg.FICS.Host,
		Port:           cfg.FICS.Port,
		Interface:      cfg.FICS.Interface,
		DialTimeout:    cfg.FICS.DialTimeout,
		LoginTimeout:   cfg.FICS.LoginTimeout,
		CommandTimeout: cfg.FICS.CommandTimeout,
		Logger:         obslog.L(),
	})
	defer func() { _ = client.Close() }()

	if err := client.Connect(ctx, cfg.FICS.Username, cfg.FICS.Password); err != nil {
		log.Fatalf("connect: %v", err)
	}
	if err := client.WaitReady(ctx); err != nil {
		log.Fatalf("login: %v", err)
	}

	reply, err := client.Command(ctx, *command)
	if err != nil {
		log.Fatalf("%s: %v", *command, err)
	}
	if *command != "games" {
		fmt.Println(reply.Text)
		return
	}

	list, errs := ficsgame.ParseGameList(reply.Text)
	for _, err := range errs {
		obslog.L().Sugar().Warnf("skipped row: %v", err)
	}
	if len(list) == 0 {
		out, _ := cat.Render("game.list.empty", nil)
		fmt.Println(out)
		return
	}
	header, _ := cat.Render("game.list.header", map[string]any{"Count": len(list)})
	fmt.Println(header)
	for _, g := range dtoconv.ToDTOGameList(list) {
		row, err := cat.Render("game.row", g)
		if err != nil {
			log.Fatalf("render: %v", err)
		}
		fmt.Println(row)
	}
}
