package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gleipnir/internal/common"
	gleipnirNet "gleipnir/internal/net"
)

func main() {
	// CLI Parameter Parsing
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	owner := flag.String("owner", "", "Owner username (compulsory)")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'modify', 'log']")

	// Order Parameters
	ticker := flag.String("ticker", "AAPL", "Ticker symbol (max 4 chars)")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "gtc", "Order type: 'gtc', 'ioc' or 'fok'")
	price := flag.Int("price", 100, "Limit price in ticks")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")

	// Cancel/Modify Parameters
	orderID := flag.Uint64("id", 0, "Venue order id to cancel or modify")

	flag.Parse()

	// Validation
	if *owner == "" {
		fmt.Println("Error: -owner is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	// Connect to Server
	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as '%s'\n", *serverAddr, *owner)

	// Start Listening for Reports (Async)
	go readReports(conn)

	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}

	orderType := common.GoodTillCancel
	switch strings.ToLower(*typeStr) {
	case "ioc":
		orderType = common.ImmediateOrCancel
	case "fok":
		orderType = common.FillOrKill
	}

	// Execute Action
	switch strings.ToLower(*action) {
	case "place":
		for _, q := range parseQuantities(*qtyStr) {
			err := sendPlaceOrder(conn, *owner, orderType, *ticker, common.Price(*price), q, side)
			if err != nil {
				log.Printf("Failed to place order (Qty: %d): %v", q, err)
			} else {
				fmt.Printf("-> Sent %s %s Order: %s %d @ %d\n",
					strings.ToUpper(*typeStr), strings.ToUpper(*sideStr), *ticker, q, *price)
			}
			// Small sleep so the server processes the sequence distinctly.
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *orderID == 0 {
			log.Fatal("Error: -id is required for cancellation")
		}
		if err := sendCancelOrder(conn, *ticker, *orderID); err != nil {
			log.Printf("Failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> Sent Cancel Request for order %d\n", *orderID)
		}

	case "modify":
		if *orderID == 0 {
			log.Fatal("Error: -id is required for modification")
		}
		quantities := parseQuantities(*qtyStr)
		if len(quantities) != 1 {
			log.Fatal("Error: -qty must be a single value for modification")
		}
		err := sendModifyOrder(conn, *ticker, *orderID, side, common.Price(*price), quantities[0])
		if err != nil {
			log.Printf("Failed to send modify request: %v", err)
		} else {
			fmt.Printf("-> Sent Modify Request for order %d: %d @ %d\n", *orderID, quantities[0], *price)
		}

	case "log":
		if err := sendLog(conn); err != nil {
			log.Printf("Failed to send log request: %v", err)
		} else {
			fmt.Println("-> Sent Log Request")
		}

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	// Keep the client alive to receive execution reports
	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

// parseQuantities splits a comma-separated string into a slice of quantities.
func parseQuantities(input string) []common.Quantity {
	parts := strings.Split(input, ",")
	var result []common.Quantity
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if val, err := strconv.ParseUint(p, 10, 32); err == nil {
			result = append(result, common.Quantity(val))
		} else {
			log.Printf("Warning: Invalid quantity '%s', skipping.", p)
		}
	}
	return result
}

// sendPlaceOrder constructs and sends the NewOrder message
func sendPlaceOrder(conn net.Conn, owner string, orderType common.OrderType, ticker string, price common.Price, qty common.Quantity, side common.Side) error {
	usernameLen := len(owner)
	totalLen := gleipnirNet.BaseMessageHeaderLen + gleipnirNet.NewOrderMessageHeaderLen + usernameLen

	buf := make([]byte, totalLen)

	// Header (TypeOf = NewOrder)
	binary.BigEndian.PutUint16(buf[0:2], uint16(gleipnirNet.NewOrder))

	// Body
	binary.BigEndian.PutUint16(buf[2:4], uint16(orderType))

	// Ticker (Pad or truncate to 4 bytes)
	tickerBytes := make([]byte, 4)
	copy(tickerBytes, ticker)
	copy(buf[4:8], tickerBytes)

	binary.BigEndian.PutUint32(buf[8:12], uint32(price))
	binary.BigEndian.PutUint32(buf[12:16], uint32(qty))
	buf[16] = byte(side)
	buf[17] = uint8(usernameLen)
	copy(buf[18:], owner)

	_, err := conn.Write(buf)
	return err
}

// sendCancelOrder constructs and sends the CancelOrder message
func sendCancelOrder(conn net.Conn, ticker string, orderID uint64) error {
	buf := make([]byte, gleipnirNet.BaseMessageHeaderLen+gleipnirNet.CancelOrderMessageHeaderLen)

	binary.BigEndian.PutUint16(buf[0:2], uint16(gleipnirNet.CancelOrder))

	tickerBytes := make([]byte, 4)
	copy(tickerBytes, ticker)
	copy(buf[2:6], tickerBytes)
	binary.BigEndian.PutUint64(buf[6:14], orderID)

	_, err := conn.Write(buf)
	return err
}

// sendModifyOrder constructs and sends the ModifyOrder message
func sendModifyOrder(conn net.Conn, ticker string, orderID uint64, side common.Side, price common.Price, qty common.Quantity) error {
	buf := make([]byte, gleipnirNet.BaseMessageHeaderLen+gleipnirNet.ModifyOrderMessageHeaderLen)

	binary.BigEndian.PutUint16(buf[0:2], uint16(gleipnirNet.ModifyOrder))

	tickerBytes := make([]byte, 4)
	copy(tickerBytes, ticker)
	copy(buf[2:6], tickerBytes)
	binary.BigEndian.PutUint64(buf[6:14], orderID)
	buf[14] = byte(side)
	binary.BigEndian.PutUint32(buf[15:19], uint32(price))
	binary.BigEndian.PutUint32(buf[19:23], uint32(qty))

	_, err := conn.Write(buf)
	return err
}

func sendLog(conn net.Conn) error {
	buf := make([]byte, gleipnirNet.BaseMessageHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(gleipnirNet.LogBook))
	_, err := conn.Write(buf)
	return err
}

// readReports continuously reads and parses Report messages from the server
func readReports(conn net.Conn) {
	for {
		// Read the fixed header, then the variable error string.
		headerBuf := make([]byte, gleipnirNet.ReportFixedHeaderLen)
		_, err := io.ReadFull(conn, headerBuf)
		if err != nil {
			if err != io.EOF {
				log.Printf("Connection lost: %v", err)
			}
			os.Exit(0)
		}

		errStrLen := binary.BigEndian.Uint32(headerBuf[34:38])
		if errStrLen > 0 {
			varBuf := make([]byte, errStrLen)
			if _, err := io.ReadFull(conn, varBuf); err != nil {
				log.Printf("Error reading report body: %v", err)
				break
			}
			headerBuf = append(headerBuf, varBuf...)
		}

		report, err := gleipnirNet.ParseReport(headerBuf)
		if err != nil {
			log.Printf("Error parsing report: %v", err)
			break
		}

		switch report.MessageType {
		case gleipnirNet.ErrorReport:
			fmt.Printf("\n[SERVER ERROR] %s\n", report.Err)
		case gleipnirNet.OrderAck:
			fmt.Printf("\n[ACK] %s order %d accepted\n",
				strings.TrimRight(report.Ticker, "\x00"), report.OrderID)
		case gleipnirNet.ExecutionReport:
			sideStr := "BUY"
			if report.Side == common.Sell {
				sideStr = "SELL"
			}
			fmt.Printf("\n[EXECUTION] Match: %s %s | Qty: %d | Price: %d | Order: %d | vs Order: %d\n",
				sideStr, strings.TrimRight(report.Ticker, "\x00"),
				report.Quantity, report.Price, report.OrderID, report.CounterOrderID)
		}
	}
}
