package orders

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/openclob/venue/internal/engine"
	"github.com/openclob/venue/internal/events"
	"github.com/openclob/venue/internal/types"
)

// Service is the venue's request handler. It validates incoming requests,
// resolves entities against the in-memory registry, serializes all mutation
// of one security behind a per-security mutex, drives the matching engine,
// writes orders and trades through to the database and publishes the
// resulting events.
type Service struct {
	db        *Database
	registry  *engine.Registry
	matcher   *engine.Matcher
	publisher events.Publisher
	logger    zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(gormDB *gorm.DB, registry *engine.Registry, publisher events.Publisher) *Service {
	return &Service{
		db:        NewDatabase(gormDB),
		registry:  registry,
		matcher:   engine.NewMatcher(registry),
		publisher: publisher,
		logger:    log.With().Str("component", "orders").Logger(),
		locks:     make(map[string]*sync.Mutex),
	}
}

// Registry exposes the entity registry, used at boot for seeding.
func (s *Service) Registry() *engine.Registry {
	return s.registry
}

// lock returns the mutex serializing one security's mutations.
func (s *Service) lock(securityID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[securityID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[securityID] = l
	}
	return l
}

// EnterOrder handles a new-order or order-update request end to end.
// Validation failures publish an ORDER_REJECTED event carrying every reason
// and leave all state untouched.
func (s *Service) EnterOrder(ctx context.Context, req *types.OrderRequest, entryType engine.OrderEntryType) (*types.OrderResponse, error) {
	engReq, err := s.buildRequest(req, entryType)
	if err != nil {
		s.publishRejection(ctx, req.RequestID, req.OrderID, req.SecurityID, err)
		return nil, err
	}

	sec := s.registry.Security(engReq.SecurityID)
	l := s.lock(sec.ID)
	l.Lock()
	defer l.Unlock()

	var results []*engine.MatchResult
	if entryType == engine.EntryNew {
		broker := s.registry.Broker(engReq.BrokerID)
		shareholder := s.registry.Shareholder(engReq.ShareholderID)
		results = sec.NewOrder(engReq, broker, shareholder, s.matcher)
	} else {
		results, err = sec.UpdateOrder(engReq, s.matcher)
		if err != nil {
			s.publishRejection(ctx, req.RequestID, req.OrderID, req.SecurityID, err)
			return nil, err
		}
	}

	final := results[len(results)-1]
	s.persistOutcome(engReq, final, results)

	acceptType := events.TypeOrderAccepted
	if entryType == engine.EntryUpdate {
		acceptType = events.TypeOrderUpdated
	}
	s.publish(ctx, renderResults(acceptType, engReq, results)...)

	s.logger.Info().
		Int64("request_id", engReq.RequestID).
		Int64("order_id", engReq.OrderID).
		Str("security_id", engReq.SecurityID).
		Str("outcome", final.Outcome.String()).
		Msg("order request handled")

	return buildOrderResponse(engReq, final, results), nil
}

// DeleteOrder removes a resting or pending order.
func (s *Service) DeleteOrder(ctx context.Context, req *types.DeleteOrderRequest) (*types.OrderResponse, error) {
	side, err := engine.ParseSide(req.Side)
	if err != nil {
		reqErr := &engine.RequestError{Reasons: []string{engine.ReasonInvalidSide}}
		s.publishRejection(ctx, req.RequestID, req.OrderID, req.SecurityID, reqErr)
		return nil, reqErr
	}
	sec := s.registry.Security(req.SecurityID)
	if sec == nil {
		reqErr := &engine.RequestError{Reasons: []string{engine.ReasonUnknownSecurity}}
		s.publishRejection(ctx, req.RequestID, req.OrderID, req.SecurityID, reqErr)
		return nil, reqErr
	}

	l := s.lock(sec.ID)
	l.Lock()
	defer l.Unlock()

	result, err := sec.DeleteOrder(&engine.DeleteOrderRequest{
		RequestID:  req.RequestID,
		SecurityID: req.SecurityID,
		Side:       side,
		OrderID:    req.OrderID,
	}, s.registry)
	if err != nil {
		s.publishRejection(ctx, req.RequestID, req.OrderID, req.SecurityID, err)
		return nil, err
	}

	if err := s.db.UpdateOrderStatus(req.SecurityID, req.OrderID, StatusCancelled); err != nil {
		s.logger.Error().Err(err).Int64("order_id", req.OrderID).Msg("failed to persist cancellation")
	}

	evts := []events.Event{{
		Type:       events.TypeOrderDeleted,
		RequestID:  req.RequestID,
		OrderID:    req.OrderID,
		SecurityID: req.SecurityID,
		Timestamp:  time.Now(),
	}}
	resp := &types.OrderResponse{
		OrderID:    req.OrderID,
		SecurityID: req.SecurityID,
		Status:     StatusCancelled,
		Timestamp:  time.Now(),
	}
	if result != nil && result.Auction != nil {
		evts = append(evts, openingPriceEvent(req.RequestID, req.SecurityID, result))
		resp.OpeningPrice = &result.Auction.OpeningPrice
		resp.TradableQuantity = &result.Auction.TradableQuantity
	}
	s.publish(ctx, evts...)

	return resp, nil
}

// ChangeMatchingState switches a security's trading regime, running the
// uncrossing pass the transition requires.
func (s *Service) ChangeMatchingState(ctx context.Context, securityID, state string) (*types.MatchingStateResponse, error) {
	target, ok := engine.ParseMatchingState(state)
	if !ok {
		return nil, &engine.RequestError{Reasons: []string{engine.ReasonInvalidMatchingState}}
	}
	sec := s.registry.Security(securityID)
	if sec == nil {
		return nil, &engine.RequestError{Reasons: []string{engine.ReasonUnknownSecurity}}
	}

	l := s.lock(sec.ID)
	l.Lock()
	defer l.Unlock()

	results := sec.ChangeMatchingState(target, s.matcher)
	s.persistTrades(results)

	var evts []events.Event
	var trades []types.TradeResponse
	for _, result := range results {
		// Uncross executions are reported trade by trade.
		for _, trade := range result.Trades {
			evts = append(evts, events.Event{
				Type:       events.TypeTrade,
				SecurityID: securityID,
				Trades:     []events.TradeInfo{tradeInfo(trade)},
				Timestamp:  time.Now(),
			})
			trades = append(trades, tradeResponse(trade))
		}
		switch result.Outcome {
		case engine.OutcomeStopOrderActivated:
			evts = append(evts, events.Event{
				Type:       events.TypeOrderActivated,
				OrderID:    resultOrderID(result, 0),
				SecurityID: securityID,
				Timestamp:  time.Now(),
			})
		case engine.OutcomeNewOpeningPrice:
			evts = append(evts, openingPriceEvent(0, securityID, result))
		}
	}
	evts = append(evts, events.Event{
		Type:       events.TypeSecurityStateChanged,
		SecurityID: securityID,
		State:      target.String(),
		Timestamp:  time.Now(),
	})
	s.publish(ctx, evts...)

	s.logger.Info().
		Str("security_id", securityID).
		Str("state", target.String()).
		Int("uncross_trades", len(trades)).
		Msg("matching state changed")

	return &types.MatchingStateResponse{
		SecurityID: securityID,
		State:      target.String(),
		Trades:     trades,
		Timestamp:  time.Now(),
	}, nil
}

// GetOrder retrieves the persisted state of an order.
func (s *Service) GetOrder(securityID string, orderID int64) (*OrderRecord, error) {
	return s.db.GetOrder(securityID, orderID)
}

// buildRequest converts the wire request and runs full syntax validation,
// accumulating every failing reason.
func (s *Service) buildRequest(req *types.OrderRequest, entryType engine.OrderEntryType) (*engine.EnterOrderRequest, error) {
	var reasons []string

	side, err := engine.ParseSide(req.Side)
	if err != nil {
		reasons = append(reasons, engine.ReasonInvalidSide)
	}
	if req.OrderID <= 0 {
		reasons = append(reasons, engine.ReasonInvalidOrderID)
	}
	if req.Quantity <= 0 {
		reasons = append(reasons, engine.ReasonQuantityNotPositive)
	}
	if req.Price <= 0 {
		reasons = append(reasons, engine.ReasonPriceNotPositive)
	}
	if req.PeakSize != 0 && (req.PeakSize < 0 || req.PeakSize >= req.Quantity) {
		reasons = append(reasons, engine.ReasonInvalidPeakSize)
	}
	if req.MinExecQuantity < 0 || req.MinExecQuantity > req.Quantity {
		reasons = append(reasons, engine.ReasonInvalidMinExecQuantity)
	}
	if req.StopPrice < 0 {
		reasons = append(reasons, engine.ReasonInvalidStopPrice)
	}
	if req.StopPrice > 0 && req.PeakSize > 0 {
		reasons = append(reasons, engine.ReasonStopPriceOnIceberg)
	}
	if req.StopPrice > 0 && req.MinExecQuantity > 0 {
		reasons = append(reasons, engine.ReasonStopPriceOnMinExec)
	}
	if req.MinExecQuantity > 0 && req.PeakSize > 0 {
		reasons = append(reasons, engine.ReasonMinExecOnIceberg)
	}

	sec := s.registry.Security(req.SecurityID)
	if sec == nil {
		reasons = append(reasons, engine.ReasonUnknownSecurity)
	} else {
		if req.Quantity > 0 && req.Quantity%sec.LotSize != 0 {
			reasons = append(reasons, engine.ReasonQuantityNotMultipleOfLot)
		}
		if req.Price > 0 && req.Price%sec.TickSize != 0 {
			reasons = append(reasons, engine.ReasonPriceNotMultipleOfTick)
		}
		if entryType == engine.EntryNew && sec.State == engine.StateAuction &&
			(req.StopPrice > 0 || req.MinExecQuantity > 0) {
			reasons = append(reasons, engine.ReasonNewStopOrMinExecInAuction)
		}
	}
	if s.registry.Broker(req.BrokerID) == nil {
		reasons = append(reasons, engine.ReasonUnknownBroker)
	}
	if s.registry.Shareholder(req.ShareholderID) == nil {
		reasons = append(reasons, engine.ReasonUnknownShareholder)
	}

	if len(reasons) > 0 {
		return nil, &engine.RequestError{Reasons: reasons}
	}

	return &engine.EnterOrderRequest{
		EntryType:       entryType,
		RequestID:       req.RequestID,
		SecurityID:      req.SecurityID,
		OrderID:         req.OrderID,
		EntryTime:       time.Now(),
		Side:            side,
		Quantity:        req.Quantity,
		Price:           req.Price,
		BrokerID:        req.BrokerID,
		ShareholderID:   req.ShareholderID,
		PeakSize:        req.PeakSize,
		MinExecQuantity: req.MinExecQuantity,
		StopPrice:       req.StopPrice,
	}, nil
}

// persistOutcome writes the order's current state and all trades produced
// while handling it.
func (s *Service) persistOutcome(req *engine.EnterOrderRequest, final *engine.MatchResult, results []*engine.MatchResult) {
	record := &OrderRecord{
		OrderID:         req.OrderID,
		RequestID:       req.RequestID,
		SecurityID:      req.SecurityID,
		Side:            req.Side.String(),
		Quantity:        remainingQuantity(req, final),
		Price:           req.Price,
		BrokerID:        req.BrokerID,
		ShareholderID:   req.ShareholderID,
		PeakSize:        req.PeakSize,
		MinExecQuantity: req.MinExecQuantity,
		StopPrice:       req.StopPrice,
		Status:          outcomeStatus(req, final),
	}
	if err := s.db.UpsertOrder(record); err != nil {
		s.logger.Error().Err(err).Int64("order_id", req.OrderID).Msg("failed to persist order")
	}
	s.persistTrades(results)
}

func (s *Service) persistTrades(results []*engine.MatchResult) {
	var records []TradeRecord
	for _, result := range results {
		for _, trade := range result.Trades {
			records = append(records, TradeRecord{
				TradeID:      uuid.New().String(),
				SecurityID:   trade.SecurityID,
				Price:        trade.Price,
				Quantity:     trade.Quantity,
				BuyOrderID:   trade.Buy.ID,
				SellOrderID:  trade.Sell.ID,
				BuyBrokerID:  trade.Buy.BrokerID,
				SellBrokerID: trade.Sell.BrokerID,
			})
		}
	}
	if err := s.db.CreateTrades(records); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist trades")
	}
}

func (s *Service) publish(ctx context.Context, evts ...events.Event) {
	if s.publisher == nil || len(evts) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.Error().Err(err).Int("events", len(evts)).Msg("failed to publish events")
	}
}

func (s *Service) publishRejection(ctx context.Context, requestID, orderID int64, securityID string, err error) {
	evt := events.Event{
		Type:       events.TypeOrderRejected,
		RequestID:  requestID,
		OrderID:    orderID,
		SecurityID: securityID,
		Timestamp:  time.Now(),
	}
	if reqErr, ok := err.(*engine.RequestError); ok {
		evt.Reasons = reqErr.Reasons
	}
	s.publish(ctx, evt)
}

func remainingQuantity(req *engine.EnterOrderRequest, final *engine.MatchResult) int {
	if final.Outcome.Rejected() {
		return req.Quantity
	}
	if final.Remainder != nil {
		return final.Remainder.Quantity
	}
	return req.Quantity
}

func outcomeStatus(req *engine.EnterOrderRequest, final *engine.MatchResult) string {
	switch final.Outcome {
	case engine.OutcomeExecuted:
		if final.Remainder != nil && final.Remainder.Quantity > 0 {
			return StatusQueued
		}
		if final.Remainder == nil && final.Trades == nil {
			// In-place update, order still resting.
			return StatusQueued
		}
		if final.Remainder != nil && final.Remainder.Quantity == 0 {
			return StatusExecuted
		}
		return StatusQueued
	case engine.OutcomeNoMatch:
		return StatusPendingTrigger
	case engine.OutcomeNewOpeningPrice:
		return StatusQueued
	default:
		return StatusRejected
	}
}

func resultOrderID(result *engine.MatchResult, fallback int64) int64 {
	if result.Remainder != nil {
		return result.Remainder.ID
	}
	return fallback
}

func tradeInfo(t *engine.Trade) events.TradeInfo {
	return events.TradeInfo{
		SecurityID:  t.SecurityID,
		Price:       t.Price,
		Quantity:    t.Quantity,
		BuyOrderID:  t.Buy.ID,
		SellOrderID: t.Sell.ID,
	}
}

func tradeResponse(t *engine.Trade) types.TradeResponse {
	return types.TradeResponse{
		SecurityID:  t.SecurityID,
		Price:       t.Price,
		Quantity:    t.Quantity,
		BuyOrderID:  t.Buy.ID,
		SellOrderID: t.Sell.ID,
	}
}

func openingPriceEvent(requestID int64, securityID string, result *engine.MatchResult) events.Event {
	return events.Event{
		Type:             events.TypeOpeningPrice,
		RequestID:        requestID,
		SecurityID:       securityID,
		OpeningPrice:     result.Auction.OpeningPrice,
		TradableQuantity: result.Auction.TradableQuantity,
		Timestamp:        time.Now(),
	}
}

// renderResults maps one handled request's MatchResults onto the event
// stream: acceptance first (unless the final outcome is a rejection), then
// the per-result executions, activations, rejections and opening prices in
// engine order.
func renderResults(acceptType events.Type, req *engine.EnterOrderRequest, results []*engine.MatchResult) []events.Event {
	final := results[len(results)-1]
	var evts []events.Event

	if final.Outcome.Rejected() {
		evts = append(evts, events.Event{
			Type:       events.TypeOrderRejected,
			RequestID:  req.RequestID,
			OrderID:    req.OrderID,
			SecurityID: req.SecurityID,
			Reasons:    []string{rejectionReason(final.Outcome)},
			Timestamp:  time.Now(),
		})
		return evts
	}

	evts = append(evts, events.Event{
		Type:       acceptType,
		RequestID:  req.RequestID,
		OrderID:    req.OrderID,
		SecurityID: req.SecurityID,
		Timestamp:  time.Now(),
	})

	for _, result := range results {
		switch result.Outcome {
		case engine.OutcomeExecuted:
			if len(result.Trades) > 0 {
				evts = append(evts, executedEvent(req, result))
			}
		case engine.OutcomeStopOrderActivated:
			evts = append(evts, events.Event{
				Type:       events.TypeOrderActivated,
				RequestID:  req.RequestID,
				OrderID:    resultOrderID(result, req.OrderID),
				SecurityID: req.SecurityID,
				Timestamp:  time.Now(),
			})
			if len(result.Trades) > 0 {
				evts = append(evts, executedEvent(req, result))
			}
		case engine.OutcomeNewOpeningPrice:
			evts = append(evts, openingPriceEvent(req.RequestID, req.SecurityID, result))
		case engine.OutcomeNotEnoughCredit, engine.OutcomeNotEnoughPositions, engine.OutcomeMEQNotMet:
			// A rejection mid-stream belongs to an activated stop order that
			// could not complete, not to the request's own order.
			evts = append(evts, events.Event{
				Type:       events.TypeOrderRejected,
				OrderID:    resultOrderID(result, 0),
				SecurityID: req.SecurityID,
				Reasons:    []string{rejectionReason(result.Outcome)},
				Timestamp:  time.Now(),
			})
		}
	}
	return evts
}

func executedEvent(req *engine.EnterOrderRequest, result *engine.MatchResult) events.Event {
	infos := make([]events.TradeInfo, 0, len(result.Trades))
	for _, trade := range result.Trades {
		infos = append(infos, tradeInfo(trade))
	}
	return events.Event{
		Type:       events.TypeOrderExecuted,
		RequestID:  req.RequestID,
		OrderID:    resultOrderID(result, req.OrderID),
		SecurityID: req.SecurityID,
		Trades:     infos,
		Timestamp:  time.Now(),
	}
}

func rejectionReason(outcome engine.Outcome) string {
	switch outcome {
	case engine.OutcomeNotEnoughCredit:
		return engine.ReasonBuyerHasNotEnoughCredit
	case engine.OutcomeNotEnoughPositions:
		return engine.ReasonSellerHasNotEnoughPosition
	case engine.OutcomeMEQNotMet:
		return engine.ReasonMinExecQuantityNotMet
	default:
		return outcome.String()
	}
}

func buildOrderResponse(req *engine.EnterOrderRequest, final *engine.MatchResult, results []*engine.MatchResult) *types.OrderResponse {
	resp := &types.OrderResponse{
		OrderID:           req.OrderID,
		SecurityID:        req.SecurityID,
		Status:            outcomeStatus(req, final),
		RemainingQuantity: remainingQuantity(req, final),
		Timestamp:         time.Now(),
	}
	for _, result := range results {
		for _, trade := range result.Trades {
			resp.Trades = append(resp.Trades, tradeResponse(trade))
		}
	}
	if final.Auction != nil {
		resp.OpeningPrice = &final.Auction.OpeningPrice
		resp.TradableQuantity = &final.Auction.TradableQuantity
	}
	return resp
}
