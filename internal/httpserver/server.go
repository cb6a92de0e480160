package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bistrolumiere/reservations/pkg/reservation"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	errorCodeValidation       = "VALIDATION_ERROR"
	errorCodePastDate         = "PAST_DATE_NOT_ALLOWED"
	errorCodeTooFarInFuture   = "TOO_FAR_IN_FUTURE"
	errorCodeFullyBooked      = "FULLY_BOOKED"
	errorCodeAlreadyCancelled = "ALREADY_CANCELLED"
	errorCodeNotFound         = "RESERVATION_NOT_FOUND"
	errorCodeInternal         = "INTERNAL_ERROR"
)

// Run boots the HTTP API using the supplied configuration. It blocks until
// the context is cancelled or the listener fails.
func Run(ctx context.Context, cfg Config, service *reservation.Service, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}
	if service == nil {
		return fmt.Errorf("http server: reservation service is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := &httpHandler{
		logger:  logger,
		service: service,
	}
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("reservation api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.POST("/reservations", handler.handleCreate)
	api.GET("/reservations", handler.handleList)
	api.GET("/reservations/:id", handler.handleGetByID)
	api.DELETE("/reservations/:id", handler.handleCancel)
	api.GET("/availability", handler.handleAvailability)
	api.GET("/schedule", handler.handleSchedule)

	return router
}

type httpHandler struct {
	logger  *zap.Logger
	service *reservation.Service
}

type createReservationRequest struct {
	GuestName      string `json:"guestName" binding:"required,max=100"`
	GuestEmail     string `json:"guestEmail" binding:"required,email,max=255"`
	PartySize      int    `json:"partySize" binding:"required,min=1,max=4"`
	Date           string `json:"date" binding:"required"`
	Time           string `json:"time" binding:"required"`
	SpecialRequest string `json:"specialRequest" binding:"omitempty,max=500"`
}

type reservationPayload struct {
	ID             string `json:"id"`
	GuestName      string `json:"guestName"`
	GuestEmail     string `json:"guestEmail"`
	PartySize      int    `json:"partySize"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Status         string `json:"status"`
	SpecialRequest string `json:"specialRequest,omitempty"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

type availabilityPayload struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	AvailableTables int    `json:"availableTables"`
	TotalTables     int    `json:"totalTables"`
	IsAvailable     bool   `json:"isAvailable"`
}

func (handler *httpHandler) handleCreate(ctx *gin.Context) {
	var request createReservationRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeValidation, "invalid reservation payload"))
		return
	}
	input, err := parseCreateInput(request)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeValidation, err.Error()))
		return
	}
	created, err := handler.service.Create(ctx.Request.Context(), input)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, toReservationPayload(created))
}

func (handler *httpHandler) handleList(ctx *gin.Context) {
	rawDate, hasDate := ctx.GetQuery("date")
	if !hasDate {
		records, err := handler.service.ListAll(ctx.Request.Context())
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, toReservationPayloads(records))
		return
	}
	date, err := reservation.NewSlotDate(rawDate)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeValidation, err.Error()))
		return
	}
	records, err := handler.service.ListByDate(ctx.Request.Context(), date)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toReservationPayloads(records))
}

func (handler *httpHandler) handleGetByID(ctx *gin.Context) {
	id, err := reservation.NewReservationID(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeValidation, err.Error()))
		return
	}
	record, err := handler.service.GetByID(ctx.Request.Context(), id)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toReservationPayload(record))
}

func (handler *httpHandler) handleCancel(ctx *gin.Context) {
	id, err := reservation.NewReservationID(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeValidation, err.Error()))
		return
	}
	cancelled, err := handler.service.Cancel(ctx.Request.Context(), id)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toReservationPayload(cancelled))
}

func (handler *httpHandler) handleAvailability(ctx *gin.Context) {
	date, err := reservation.NewSlotDate(ctx.Query("date"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeValidation, err.Error()))
		return
	}
	slotTime, err := reservation.NewSlotTime(ctx.Query("time"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeValidation, err.Error()))
		return
	}
	slot := reservation.NewSlot(date, slotTime)
	available, err := handler.service.AvailableSeats(ctx.Request.Context(), slot)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, availabilityPayload{
		Date:            slot.Date.String(),
		Time:            slot.Time.String(),
		AvailableTables: available,
		TotalTables:     reservation.SlotCapacity,
		IsAvailable:     available > 0,
	})
}

func (handler *httpHandler) handleSchedule(ctx *gin.Context) {
	start, err := reservation.NewSlotDate(ctx.Query("start"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeValidation, err.Error()))
		return
	}
	end, err := reservation.NewSlotDate(ctx.Query("end"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeValidation, err.Error()))
		return
	}
	records, err := handler.service.ListConfirmedBetween(ctx.Request.Context(), start, end)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toReservationPayloads(records))
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, reservation.ErrFullyBooked):
		ctx.JSON(http.StatusConflict, errorResponse(errorCodeFullyBooked, err.Error()))
	case errors.Is(err, reservation.ErrAlreadyCancelled):
		ctx.JSON(http.StatusConflict, errorResponse(errorCodeAlreadyCancelled, "reservation is already cancelled"))
	case errors.Is(err, reservation.ErrReservationNotFound):
		ctx.JSON(http.StatusNotFound, errorResponse(errorCodeNotFound, "reservation not found"))
	case errors.Is(err, reservation.ErrPastDateNotAllowed):
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodePastDate, "reservation date is in the past"))
	case errors.Is(err, reservation.ErrTooFarInFuture):
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeTooFarInFuture, fmt.Sprintf("reservation date is more than %d days ahead", reservation.MaxAdvanceDays)))
	case isValidationError(err):
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeValidation, err.Error()))
	default:
		handler.logger.Error("reservation request failed",
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
		ctx.JSON(http.StatusInternalServerError, errorResponse(errorCodeInternal, "internal error"))
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		reservation.ErrInvalidReservationID,
		reservation.ErrInvalidGuestName,
		reservation.ErrInvalidGuestEmail,
		reservation.ErrInvalidPartySize,
		reservation.ErrInvalidSlotDate,
		reservation.ErrInvalidSlotTime,
		reservation.ErrInvalidSpecialRequest,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func parseCreateInput(request createReservationRequest) (reservation.CreateInput, error) {
	guestName, err := reservation.NewGuestName(request.GuestName)
	if err != nil {
		return reservation.CreateInput{}, err
	}
	guestEmail, err := reservation.NewGuestEmail(request.GuestEmail)
	if err != nil {
		return reservation.CreateInput{}, err
	}
	partySize, err := reservation.NewPartySize(request.PartySize)
	if err != nil {
		return reservation.CreateInput{}, err
	}
	date, err := reservation.NewSlotDate(request.Date)
	if err != nil {
		return reservation.CreateInput{}, err
	}
	slotTime, err := reservation.NewSlotTime(request.Time)
	if err != nil {
		return reservation.CreateInput{}, err
	}
	specialRequest, err := reservation.NewSpecialRequest(request.SpecialRequest)
	if err != nil {
		return reservation.CreateInput{}, err
	}
	return reservation.NewCreateInput(guestName, guestEmail, partySize, reservation.NewSlot(date, slotTime), specialRequest)
}

func toReservationPayload(record reservation.Reservation) reservationPayload {
	return reservationPayload{
		ID:             record.ID().String(),
		GuestName:      record.GuestName().String(),
		GuestEmail:     record.GuestEmail().String(),
		PartySize:      record.PartySize().Int(),
		Date:           record.Slot().Date.String(),
		Time:           record.Slot().Time.String(),
		Status:         record.Status().String(),
		SpecialRequest: record.SpecialRequest().String(),
		CreatedAt:      record.CreatedAt().UTC().Format(time.RFC3339),
		UpdatedAt:      record.UpdatedAt().UTC().Format(time.RFC3339),
	}
}

func toReservationPayloads(records []reservation.Reservation) []reservationPayload {
	payloads := make([]reservationPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, toReservationPayload(record))
	}
	return payloads
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
