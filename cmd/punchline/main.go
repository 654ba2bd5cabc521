package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/server"
	"github.com/smallbiznis/punchline/pkg/db"
	"github.com/smallbiznis/punchline/pkg/log"
)

func main() {
	app := fx.New(
		log.Module,
		db.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
