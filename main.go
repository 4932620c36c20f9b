package main

import (
	"fmt"

	"clipstash/clip-api/api"
	"clipstash/clip-api/aws"
	"clipstash/clip-api/clip"
	"clipstash/clip-api/config"
	"clipstash/clip-api/db"
	"clipstash/clip-api/internal"
	"clipstash/clip-api/internal/service"
	"clipstash/clip-api/pkg/security"
	"clipstash/clip-api/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	api.MakeLogger()

	conn, err := db.New()
	if err != nil {
		panic(err)
	}

	s3, err := aws.NewS3()
	if err != nil {
		panic(err)
	}

	clips := store.New(conn)
	broker := aws.NewBroker(s3)
	manager := clip.NewManager(clips, broker, security.New())

	reaper := service.NewReaper(clips, broker)
	if err := reaper.Start(viper.GetString("reaper.schedule")); err != nil {
		panic(err)
	}
	defer reaper.Stop()

	a := api.NewRouter(&internal.Deps{
		DB:     conn,
		Clips:  manager,
		Reaper: reaper,
	})

	zap.L().Info("Server starting", zap.Int("port", viper.GetInt("host.port")))

	err = a.Router.Run(fmt.Sprintf(":%d", viper.GetInt("host.port")))
	if err != nil {
		panic(err)
	}
}
