package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"vesta/internal/common"
	"vesta/internal/engine"
	"vesta/internal/escrow"
	"vesta/internal/tax"
	"vesta/internal/utils"
)

const (
	MAX_RECV_SIZE      = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = 30 * time.Second
)

var ErrImproperConversion = errors.New("improper type conversion")

// ClientSession contains relevant information pertaining to an individual
// connected TCP session.
type ClientSession struct {
	conn     net.Conn
	username string // bound after a successful Register
}

// ClientMessage links a message to the client sending it.
type ClientMessage struct {
	clientAddress string
	message       Message
}

// Server is the intake layer in front of the matching engine. It provisions
// users, credits cash and units, and owns the escrow reservation protocol:
// an order's notional (buy) or quantity (sell) is locked before the order
// reaches the engine, and a completed buy's leftover reservation is released
// here. The engine never unlocks anything itself.
type Server struct {
	address string
	port    int

	engine  *engine.MatchingEngine
	records *escrow.Records
	taxes   *tax.Ledger

	pool               utils.WorkerPool
	cancel             context.CancelFunc
	clientSessions     map[string]*ClientSession
	clientSessionsLock sync.Mutex
	clientMessages     chan ClientMessage
}

func New(address string, port int, eng *engine.MatchingEngine, records *escrow.Records, taxes *tax.Ledger) *Server {
	return &Server{
		address:        address,
		port:           port,
		engine:         eng,
		records:        records,
		taxes:          taxes,
		pool:           utils.NewWorkerPool(defaultNWorkers),
		clientSessions: make(map[string]*ClientSession),
		clientMessages: make(chan ClientMessage, 1),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	// Setup a cancel on the context for future shutdown.
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	// Start a tcp listener.
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	// Start the worker pool.
	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	// Start the session handler. All intake runs through this single loop,
	// so reservation, submit and residual release never interleave.
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("server running")

	// Start accepting connections.
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}

			log.Info().
				Str("address", conn.RemoteAddr().String()).
				Msg("new client added")
			// Add the client to client sessions we are tracking.
			// We expect to potentially maintain a long TCP session.
			s.addClientSession(conn)

			// Pass over the connection to be read from.
			s.pool.AddTask(conn)
		}
	}
}

// ReportTrade implements engine.Reporter: each settled trade is turned into
// one execution report per counterparty and delivered to whichever of the two
// owners holds a live session.
func (s *Server) ReportTrade(trade common.Trade) {
	buyerReport := Report{
		TypeOf:       ExecutionReport,
		Role:         AsBuyer,
		Class:        trade.Class,
		Timestamp:    uint64(trade.Timestamp.Unix()),
		Quantity:     uint64(trade.Quantity),
		Price:        uint64(trade.Price),
		Tax:          uint64(trade.Tax),
		Fee:          uint64(trade.Fee),
		OrderUUID:    trade.BuyOrder,
		Counterparty: trade.Seller,
	}
	sellerReport := Report{
		TypeOf:       ExecutionReport,
		Role:         AsSeller,
		Class:        trade.Class,
		Timestamp:    uint64(trade.Timestamp.Unix()),
		Quantity:     uint64(trade.Quantity),
		Price:        uint64(trade.Price),
		Tax:          uint64(trade.Tax),
		Fee:          uint64(trade.Fee),
		OrderUUID:    trade.SellOrder,
		Counterparty: trade.Buyer,
	}
	s.reportToUser(trade.Buyer, buyerReport)
	s.reportToUser(trade.Seller, sellerReport)
}

// sessionHandler drains incoming client messages and actions them. Messages
// are received from the pool of workers.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case message := <-s.clientMessages:
			s.handleMessage(message.clientAddress, message.message)
		}
	}
}

func (s *Server) handleMessage(address string, message Message) {
	switch m := message.(type) {
	case RegisterMessage:
		s.handleRegister(address, m)
	case DepositMessage:
		s.handleDeposit(address, m)
	case GrantMessage:
		s.handleGrant(address, m)
	case NewOrderMessage:
		s.handleNewOrder(address, m)
	case BaseMessage:
		switch m.TypeOf {
		case TaxQuery:
			s.handleTaxQuery(address)
		case Heartbeat:
			// Nothing to action; the read already refreshed the session.
		}
	}
}

func (s *Server) handleRegister(address string, m RegisterMessage) {
	if _, err := s.records.Register(m.Username); err != nil {
		s.reportError(address, "", err)
		return
	}
	s.bindUsername(address, m.Username)
	log.Info().Str("username", m.Username).Msg("user registered")
	s.report(address, Report{
		TypeOf:    OrderAck,
		Timestamp: uint64(time.Now().Unix()),
		Detail:    "registered",
	})
}

func (s *Server) handleDeposit(address string, m DepositMessage) {
	account, err := s.records.Get(m.Username)
	if err != nil {
		s.reportError(address, "", err)
		return
	}
	if err := account.Wallet.AddFree(m.Amount); err != nil {
		s.reportError(address, "", err)
		return
	}
	log.Info().Str("username", m.Username).Int64("amount", m.Amount).Msg("cash deposited")
	s.report(address, Report{
		TypeOf:    OrderAck,
		Timestamp: uint64(time.Now().Unix()),
		Detail:    "deposited",
	})
}

func (s *Server) handleGrant(address string, m GrantMessage) {
	if !m.Class.Valid() {
		s.reportError(address, "", tax.ErrInvalidClass)
		return
	}
	account, err := s.records.Get(m.Username)
	if err != nil {
		s.reportError(address, "", err)
		return
	}
	if err := account.Inventory(m.Class).AddFree(m.Units); err != nil {
		s.reportError(address, "", err)
		return
	}
	log.Info().
		Str("username", m.Username).
		Stringer("class", m.Class).
		Int64("units", m.Units).
		Msg("units granted")
	s.report(address, Report{
		TypeOf:    OrderAck,
		Timestamp: uint64(time.Now().Unix()),
		Detail:    "granted",
	})
}

// handleNewOrder runs the full intake sequence: boundary validation, escrow
// reservation, submit, and release of the buyer's residual reservation once
// the order has completed below its own limit.
func (s *Server) handleNewOrder(address string, m NewOrderMessage) {
	order, err := m.Order()
	if err != nil {
		s.reportError(address, "", err)
		return
	}
	account, err := s.records.Get(m.Username)
	if err != nil {
		s.reportError(address, "", err)
		return
	}

	if err := s.reserve(account, order); err != nil {
		s.reportError(address, order.UUID, err)
		return
	}

	if err := s.engine.Submit(order); err != nil {
		// The engine made no further progress; hand the untouched part of
		// the reservation back.
		s.release(account, order)
		s.reportError(address, order.UUID, err)
		return
	}

	if order.Side == common.Buy && order.Status() == common.Completed && order.Reserved() > 0 {
		if err := account.Wallet.Unlock(order.Reserved()); err != nil {
			log.Error().Err(err).Str("uuid", order.UUID).Msg("residual unlock failed")
		}
	}

	log.Info().
		Str("uuid", order.UUID).
		Str("username", order.Owner).
		Stringer("side", order.Side).
		Stringer("status", order.Status()).
		Int64("remaining", order.Remaining()).
		Msg("order submitted")

	s.report(address, Report{
		TypeOf:    OrderAck,
		Role:      Role(order.Side),
		Class:     order.Class,
		Status:    order.Status(),
		Timestamp: uint64(order.Timestamp.Unix()),
		Quantity:  uint64(order.Remaining()),
		Price:     uint64(order.Price),
		OrderUUID: order.UUID,
	})
}

func (s *Server) handleTaxQuery(address string) {
	s.report(address, Report{
		TypeOf:    TaxReport,
		Timestamp: uint64(time.Now().Unix()),
		Detail:    s.taxes.Current().String(),
	})
}

// reserve locks the order's full commitment in the owner's escrow.
func (s *Server) reserve(account *escrow.Account, order *engine.Order) error {
	if order.Side == common.Buy {
		return account.Wallet.Lock(order.Notional())
	}
	return account.Inventory(order.Class).Lock(order.Quantity)
}

// release returns the unconsumed part of a reservation after a rejection.
func (s *Server) release(account *escrow.Account, order *engine.Order) {
	var err error
	if order.Side == common.Buy {
		err = account.Wallet.Unlock(order.Reserved())
	} else {
		err = account.Inventory(order.Class).Unlock(order.Remaining())
	}
	if err != nil {
		log.Error().Err(err).Str("uuid", order.UUID).Msg("reservation release failed")
	}
}

func (s *Server) reportError(address, orderUUID string, cause error) {
	s.report(address, Report{
		TypeOf:    ErrorReport,
		Timestamp: uint64(time.Now().Unix()),
		OrderUUID: orderUUID,
		Detail:    cause.Error(),
	})
}

func (s *Server) report(address string, report Report) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	session, ok := s.clientSessions[address]
	if !ok {
		return
	}
	if _, err := session.conn.Write(report.Serialize()); err != nil {
		log.Error().Err(err).Str("address", address).Msg("unable to send report")
		delete(s.clientSessions, address)
	}
}

// reportToUser delivers to whichever session registered the username. A user
// without a live session simply misses the report.
func (s *Server) reportToUser(username string, report Report) {
	s.clientSessionsLock.Lock()
	address := ""
	for addr, session := range s.clientSessions {
		if session.username == username {
			address = addr
			break
		}
	}
	s.clientSessionsLock.Unlock()

	if address != "" {
		s.report(address, report)
	}
}

// handleConnection is a short-lived worker method which reads the next
// message off the connection, parses and passes it forward to sessionHandler
// to handle it. If the connection dies, the client session is cleaned up.
// Note, any error returned from here is fatal to the pool.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	// Set max read timeout for this message.
	if err := conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().
			Str("address", conn.RemoteAddr().String()).
			Err(err).
			Msg("failed setting deadline for connection")
		s.dropClientSession(conn)
		return nil
	}

	buffer := make([]byte, MAX_RECV_SIZE)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			// If a read from a client fails, it is likely that the client
			// has exited. Clean up the client session.
			log.Info().
				Err(err).
				Str("address", conn.RemoteAddr().String()).
				Msg("closing client connection")
			s.dropClientSession(conn)
			return nil
		}

		message, err := parseMessage(buffer[:n])
		if err != nil {
			log.Error().
				Err(err).
				Str("address", conn.RemoteAddr().String()).
				Msg("error parsing message")
			s.reportError(conn.RemoteAddr().String(), "", err)
		} else {
			// Pass over to the message handling buffer.
			s.clientMessages <- ClientMessage{
				message:       message,
				clientAddress: conn.RemoteAddr().String(),
			}
		}

		// Push the client connection back to handle the next message.
		s.pool.AddTask(conn)
	}
	return nil
}

// addClientSession is an atomic map add.
func (s *Server) addClientSession(conn net.Conn) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	s.clientSessions[conn.RemoteAddr().String()] = &ClientSession{
		conn: conn,
	}
}

func (s *Server) bindUsername(address, username string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	if session, ok := s.clientSessions[address]; ok {
		session.username = username
	}
}

// dropClientSession is an atomic map remove that also closes the connection.
func (s *Server) dropClientSession(conn net.Conn) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	delete(s.clientSessions, conn.RemoteAddr().String())
	if err := conn.Close(); err != nil {
		log.Error().Str("address", conn.RemoteAddr().String()).Err(err).Msg("unable to close connection")
	}
}
