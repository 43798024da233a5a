package main

import (
	"io"
	"time"

	"easybet/configs"
	"easybet/internal/handlers"
	"easybet/internal/ledger"
	"easybet/internal/registry"
	"easybet/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

func main() {
	// 1. Logging to stderr; no separate log file.
	lg := logger.Init("easybet", true, false, io.Discard)
	defer lg.Close()

	configs.LoadConfig()

	// 2. Wire the engine: ledger and registry behind the one lottery service.
	ldg := ledger.New(configs.AppConfig.Airdrop.Amount)
	reg := registry.New()
	lotteryService := services.NewLotteryService(ldg, reg)

	// 3. Initialize the HTTP handler.
	httpHandler := handlers.NewHTTPHandler(lotteryService, []byte(configs.AppConfig.JWT.Secret))

	// 4. Set up the Gin router.
	r := gin.Default()

	// 5. Register public routes (before middleware).
	httpHandler.RegisterPublicRoutes(r)

	// 6. Group routes that act on behalf of an account and apply middleware.
	accountRoutes := r.Group("/")
	accountRoutes.Use(httpHandler.AccountMiddleware())
	httpHandler.RegisterAccountRoutes(accountRoutes)

	// 7. Periodic sweep: log round counts. Expiry is derived data checked
	// at staking time; this never mutates round state.
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			open, expired, settled := lotteryService.CountRounds()
			logger.Infof("rounds: %d open, %d expired awaiting finish, %d settled", open, expired, settled)
		}
	}()

	// 8. Run the server.
	addr := configs.AppConfig.Server.Addr
	logger.Infof("server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("failed to run server: %v", err)
	}
}
