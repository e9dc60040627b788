package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"gleipnir/internal/common"
	"gleipnir/internal/utils"
)

const (
	MAX_RECV_SIZE      = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = 30 * time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// ClientSession contains relevant information pertaining to an individual
// connected TCP session.
type ClientSession struct {
	conn      net.Conn
	sessionID string
}

// ClientMessage links a message to the client sending it.
type ClientMessage struct {
	clientAddress string
	message       Message
}

// Engine is the interface that provides access to order handling.
type Engine interface {
	PlaceOrder(symbol string, side common.Side, orderType common.OrderType, price common.Price, quantity common.Quantity) (common.OrderID, []common.Trade, error)
	CancelOrder(symbol string, id common.OrderID) error
	ModifyOrder(symbol string, modify common.OrderModify) ([]common.Trade, error)
	LogBook()
}

type Server struct {
	address            string
	port               int
	engine             Engine
	pool               utils.WorkerPool
	cancel             context.CancelFunc
	clientSessions     map[string]ClientSession
	clientSessionsLock sync.Mutex

	// Order id to owning client address, for routing execution reports.
	owners     map[common.OrderID]string
	ownersLock sync.Mutex

	clientMessages chan ClientMessage
}

func New(address string, port int, engine Engine) *Server {
	return &Server{
		address:        address,
		port:           port,
		engine:         engine,
		pool:           utils.NewWorkerPool(defaultNWorkers),
		clientSessions: make(map[string]ClientSession),
		owners:         make(map[common.OrderID]string),
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

	// Start the session handler.
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

			// Add the client to client sessions we are tracking.
			// We expect to potentially maintain a long TCP session.
			session := s.addClientSession(conn)
			log.Info().
				Str("address", conn.RemoteAddr().String()).
				Str("session", session.sessionID).
				Msg("new client added")

			// Pass over the connection to be read from.
			s.pool.AddTask(conn)
		}
	}
}

// reportTrades routes an execution report to the owner of each leg.
func (s *Server) reportTrades(ticker string, trades []common.Trade) {
	now := uint64(time.Now().UnixNano())
	for _, trade := range trades {
		s.reportExecution(ticker, common.Buy, trade.Bid(), trade.Ask(), now)
		s.reportExecution(ticker, common.Sell, trade.Ask(), trade.Bid(), now)
	}
}

func (s *Server) reportExecution(ticker string, side common.Side, leg, counter common.TradeRecord, timestamp uint64) {
	s.ownersLock.Lock()
	owner, ok := s.owners[leg.OrderID]
	s.ownersLock.Unlock()
	if !ok {
		return
	}

	report := Report{
		MessageType:    ExecutionReport,
		Side:           side,
		Timestamp:      timestamp,
		OrderID:        leg.OrderID,
		CounterOrderID: counter.OrderID,
		Price:          leg.Price,
		Quantity:       leg.Quantity,
		Ticker:         ticker,
	}
	if err := s.send(owner, report.Serialize()); err != nil {
		log.Error().
			Err(err).
			Uint64("orderID", leg.OrderID).
			Msg("unable to send execution report")
	}
}

func (s *Server) reportAck(clientAddress, ticker string, side common.Side, id common.OrderID) error {
	report := Report{
		MessageType: OrderAck,
		Side:        side,
		Timestamp:   uint64(time.Now().UnixNano()),
		OrderID:     id,
		Ticker:      ticker,
	}
	return s.send(clientAddress, report.Serialize())
}

func (s *Server) ReportError(clientAddress string, reported error) error {
	errStr := reported.Error()
	report := Report{
		MessageType: ErrorReport,
		Timestamp:   uint64(time.Now().UnixNano()),
		ErrStrLen:   uint32(len(errStr)),
		Err:         errStr,
	}
	return s.send(clientAddress, report.Serialize())
}

// send writes a serialized report to a client, dropping the session if the
// write fails.
func (s *Server) send(clientAddress string, report []byte) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	client, ok := s.clientSessions[clientAddress]
	if !ok {
		return ErrClientDoesNotExist
	}

	if _, err := client.conn.Write(report); err != nil {
		delete(s.clientSessions, clientAddress)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

// sessionHandler reads off incoming messages from clients and handles
// high-level session logic. Messages are received from the pool of
// workers.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case message := <-s.clientMessages:
			if err := s.handleMessage(message); err != nil {
				log.Error().
					Err(err).
					Str("clientAddress", message.clientAddress).
					Msg("error handling message")
				// Log the error back to the client
				s.ReportError(message.clientAddress, err)
			}
		}
	}
}

func (s *Server) handleMessage(message ClientMessage) error {
	switch message.message.GetType() {
	case NewOrder:
		msg, ok := message.message.(NewOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		id, trades, err := s.engine.PlaceOrder(msg.Ticker, msg.Side, msg.OrderType, msg.LimitPrice, msg.Quantity)
		if err != nil {
			return err
		}
		s.setOwner(id, message.clientAddress)
		if err := s.reportAck(message.clientAddress, msg.Ticker, msg.Side, id); err != nil {
			log.Error().Err(err).Msg("unable to ack order")
		}
		s.reportTrades(msg.Ticker, trades)
	case CancelOrder:
		msg, ok := message.message.(CancelOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		if err := s.engine.CancelOrder(msg.Ticker, msg.OrderID); err != nil {
			return err
		}
	case ModifyOrder:
		msg, ok := message.message.(ModifyOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		trades, err := s.engine.ModifyOrder(msg.Ticker, msg.Modify())
		if err != nil {
			return err
		}
		s.reportTrades(msg.Ticker, trades)
	case LogBook:
		s.engine.LogBook()
	case Heartbeat:
	default:
		log.Error().
			Int("messageType", int(message.message.GetType())).
			Msg("invalid message type")
		return ErrInvalidMessageType
	}
	return nil
}

// handleConnection is a short-lived worker method which reads the next
// message off the connection, parses and passes it forward to
// sessionHandler to handle it. If the connection dies, the client session
// is cleaned up.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	// Set max read timeout.
	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().
			Str("address", conn.RemoteAddr().String()).
			Err(err).
			Msg("failed setting deadline for connection")
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
			s.deleteClientSession(conn.RemoteAddr().String())
			if closeErr := conn.Close(); closeErr != nil {
				log.Error().Str("address", conn.RemoteAddr().String()).Err(closeErr).Msg("unable to close connection")
			}
			return nil
		}

		message, err := parseMessage(buffer[:n])
		if err != nil {
			log.Error().
				Err(err).
				Str("address", conn.RemoteAddr().String()).
				Msg("error parsing message")
			s.ReportError(conn.RemoteAddr().String(), err)
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

func (s *Server) setOwner(id common.OrderID, clientAddress string) {
	s.ownersLock.Lock()
	defer s.ownersLock.Unlock()
	s.owners[id] = clientAddress
}

// addClientSession is an atomic map add
func (s *Server) addClientSession(conn net.Conn) ClientSession {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	session := ClientSession{
		conn:      conn,
		sessionID: uuid.New().String(),
	}
	s.clientSessions[conn.RemoteAddr().String()] = session
	return session
}

// deleteClientSession is an atomic map remove
func (s *Server) deleteClientSession(address string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	delete(s.clientSessions, address)
}
