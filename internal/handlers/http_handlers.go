package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"easybet/internal/ledger"
	"easybet/internal/registry"
	"easybet/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/logger"
)

// accountKey is the gin context key the middleware stores the caller's
// account address under.
const accountKey = "account"

// HTTPHandler holds the dependencies for the HTTP handlers: the lottery
// service and the secret used to attribute requests to accounts.
type HTTPHandler struct {
	service   *services.LotteryService
	jwtSecret []byte
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.LotteryService, jwtSecret []byte) *HTTPHandler {
	return &HTTPHandler{
		service:   service,
		jwtSecret: jwtSecret,
	}
}

// RegisterPublicRoutes registers the routes that need no account attribution.
func (h *HTTPHandler) RegisterPublicRoutes(router *gin.Engine) {
	router.POST("/auth/token", h.IssueToken)
	router.GET("/lotteries", h.ListLotteries)
	router.GET("/lotteries/:id", h.GetLotteryInfo)
	router.GET("/lotteries/:id/pool", h.GetPrizePool)
	router.GET("/lotteries/:id/orders", h.GetOrderBook)
}

// RegisterAccountRoutes registers the routes that act on behalf of the
// authenticated account. The group must carry AccountMiddleware.
func (h *HTTPHandler) RegisterAccountRoutes(router *gin.RouterGroup) {
	router.POST("/airdrop", h.ClaimAirdrop)
	router.GET("/balance", h.GetBalance)
	router.POST("/lotteries", h.CreateLottery)
	router.POST("/lotteries/:id/tickets", h.BuyTicket)
	router.POST("/lotteries/:id/finish", h.FinishLottery)
	router.POST("/lotteries/:id/result", h.DeclareResult)
	router.GET("/tickets", h.MyTickets)
	router.POST("/orders", h.PlaceOrder)
	router.POST("/lotteries/:id/orders/:orderId/buy", h.BuyOrder)
}

// AccountMiddleware attributes each request to an account from the bearer
// token. It does not verify wallet signatures; token issuance is the trust
// boundary of the deployment, not of the engine.
func (h *HTTPHandler) AccountMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization header"})
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return h.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token payload"})
			return
		}

		c.Set(accountKey, sub)
		c.Next()
	}
}

type tokenRequest struct {
	Account string `json:"account" binding:"required"`
}

// IssueToken hands out an attribution token for the given account address.
func (h *HTTPHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account is required"})
		return
	}

	claims := jwt.MapClaims{
		"sub": req.Account,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		logger.Errorf("failed to sign token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": signed})
}

// ClaimAirdrop credits the one-time grant to the caller.
func (h *HTTPHandler) ClaimAirdrop(c *gin.Context) {
	account := c.GetString(accountKey)
	balance, err := h.service.ClaimAirdrop(account)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "balance": balance})
}

// GetBalance returns the caller's balance and airdrop status.
func (h *HTTPHandler) GetBalance(c *gin.Context) {
	account := c.GetString(accountKey)
	balance, claimed := h.service.BalanceOf(account)
	c.JSON(http.StatusOK, gin.H{"account": account, "balance": balance, "airdropClaimed": claimed})
}

type createLotteryRequest struct {
	Name            string   `json:"name" binding:"required"`
	Choices         []string `json:"choices" binding:"required"`
	InitialPrize    uint64   `json:"initialPrize"`
	DurationSeconds uint64   `json:"durationSeconds" binding:"required"`
}

// CreateLottery opens a new round funded by the caller.
func (h *HTTPHandler) CreateLottery(c *gin.Context) {
	var req createLotteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creator := c.GetString(accountKey)
	id, err := h.service.CreateLottery(creator, req.Name, req.Choices, req.InitialPrize,
		time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeError(c, err)
		return
	}
	info, _ := h.service.GetLotteryInfo(id)
	c.JSON(http.StatusCreated, info)
}

type buyTicketRequest struct {
	ChoiceIndex uint32 `json:"choiceIndex"`
	Amount      uint64 `json:"amount"`
}

// BuyTicket stakes the given amount on a choice of the round in the path.
func (h *HTTPHandler) BuyTicket(c *gin.Context) {
	roundID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req buyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticketID, err := h.service.BuyTicket(c.GetString(accountKey), roundID, req.ChoiceIndex, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticketId": ticketID})
}

// FinishLottery closes the round to further staking.
func (h *HTTPHandler) FinishLottery(c *gin.Context) {
	roundID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.FinishLottery(c.GetString(accountKey), roundID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": roundID, "isFinished": true})
}

type declareResultRequest struct {
	WinningChoice uint32 `json:"winningChoice"`
}

// DeclareResult records the winning choice and pays out the pool.
func (h *HTTPHandler) DeclareResult(c *gin.Context) {
	roundID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req declareResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.DeclareResult(c.GetString(accountKey), roundID, req.WinningChoice); err != nil {
		writeError(c, err)
		return
	}
	info, _ := h.service.GetLotteryInfo(roundID)
	c.JSON(http.StatusOK, info)
}

// ListLotteries returns every round, newest last.
func (h *HTTPHandler) ListLotteries(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListLotteries())
}

// GetLotteryInfo returns one round's projection.
func (h *HTTPHandler) GetLotteryInfo(c *gin.Context) {
	roundID, ok := pathID(c, "id")
	if !ok {
		return
	}
	info, err := h.service.GetLotteryInfo(roundID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetPrizePool returns one round's current escrowed pool.
func (h *HTTPHandler) GetPrizePool(c *gin.Context) {
	roundID, ok := pathID(c, "id")
	if !ok {
		return
	}
	pool, err := h.service.GetCurrentPrizePool(roundID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": roundID, "prizePool": pool})
}

// MyTickets returns the caller's tickets joined with round state.
func (h *HTTPHandler) MyTickets(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.TicketsOwnedBy(c.GetString(accountKey)))
}

type placeOrderRequest struct {
	TicketID uint64 `json:"ticketId" binding:"required"`
	Price    uint64 `json:"price"`
}

// PlaceOrder lists one of the caller's tickets for resale.
func (h *HTTPHandler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	roundID, orderID, err := h.service.PlaceOrder(c.GetString(accountKey), req.TicketID, req.Price)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"roundId": roundID, "orderId": orderID})
}

// BuyOrder settles a resale listing in favor of the caller.
func (h *HTTPHandler) BuyOrder(c *gin.Context) {
	roundID, ok := pathID(c, "id")
	if !ok {
		return
	}
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}
	if err := h.service.BuyOrder(c.GetString(accountKey), roundID, orderID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roundId": roundID, "orderId": orderID, "active": false})
}

// GetOrderBook returns every order of a round, active and settled.
func (h *HTTPHandler) GetOrderBook(c *gin.Context) {
	roundID, ok := pathID(c, "id")
	if !ok {
		return
	}
	book, err := h.service.GetOrderBook(roundID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// pathID parses a positive integer path parameter, writing the 400 itself
// on failure.
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// writeError maps an engine error to its HTTP status: validation 400,
// authorization 403, unknown ids 404, everything else (state and balance
// conflicts) 409.
func writeError(c *gin.Context, err error) {
	status := http.StatusConflict
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidChoices),
		errors.Is(err, services.ErrInvalidChoice):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotAuthorized),
		errors.Is(err, registry.ErrNotOwner),
		errors.Is(err, services.ErrSelfTrade):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrUnknownRound),
		errors.Is(err, services.ErrUnknownOrder),
		errors.Is(err, registry.ErrUnknownTicket):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
