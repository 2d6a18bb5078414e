package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"vesta/internal/common"
	vestaNet "vesta/internal/net"
)

func main() {
	// 1. CLI Parameter Parsing
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	owner := flag.String("owner", "", "Owner username (compulsory)")
	action := flag.String("action", "place", "Action to perform: ['register', 'deposit', 'grant', 'place', 'tax']")

	// Order Parameters
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	classStr := flag.String("class", "non_performance", "Unit class: 'performance' or 'non_performance'")
	price := flag.Int64("price", 100, "Limit price")
	qty := flag.Int64("qty", 10, "Quantity")

	// Funding Parameters
	amount := flag.Int64("amount", 0, "Cash amount for 'deposit'")
	units := flag.Int64("units", 0, "Unit count for 'grant'")

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

	// Prepare Enums using 'common' package
	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}

	class := common.NonPerformance
	if strings.ToLower(*classStr) == "performance" {
		class = common.Performance
	}

	// Execute Action
	var msg []byte
	switch strings.ToLower(*action) {
	case "register":
		msg, err = vestaNet.EncodeRegister(*owner)
	case "deposit":
		msg, err = vestaNet.EncodeDeposit(*owner, *amount)
	case "grant":
		msg, err = vestaNet.EncodeGrant(*owner, class, *units)
	case "place":
		msg, err = vestaNet.EncodeNewOrder(*owner, side, class, *qty, *price)
	case "tax":
		msg = vestaNet.EncodeTaxQuery()
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
	if err != nil {
		log.Fatalf("Failed to encode %s message: %v", *action, err)
	}

	if _, err := conn.Write(msg); err != nil {
		log.Fatalf("Failed to send %s message: %v", *action, err)
	}

	// Give the server a moment to respond before exiting.
	time.Sleep(2 * time.Second)
}

// readReports prints every report frame the server pushes at us.
func readReports(conn net.Conn) {
	buffer := make([]byte, 4*1024)
	for {
		n, err := conn.Read(buffer)
		if err != nil {
			if err != io.EOF {
				log.Printf("Read error: %v", err)
			}
			return
		}

		report, err := vestaNet.ParseReport(buffer[:n])
		if err != nil {
			log.Printf("Failed to parse report: %v", err)
			continue
		}
		printReport(report)
	}
}

func printReport(r vestaNet.Report) {
	switch r.TypeOf {
	case vestaNet.OrderAck:
		if r.OrderUUID == "" {
			fmt.Printf("[ACK] %s\n", r.Detail)
			return
		}
		fmt.Printf("[ACK] order %s status=%v remaining=%d price=%d\n",
			r.OrderUUID, r.Status, r.Quantity, r.Price)
	case vestaNet.ExecutionReport:
		role := "bought"
		if r.Role == vestaNet.AsSeller {
			role = "sold"
		}
		fmt.Printf("[TRADE] %s %d %v @ %d (tax=%d fee=%d) vs %s, order %s\n",
			role, r.Quantity, r.Class, r.Price, r.Tax, r.Fee, r.Counterparty, r.OrderUUID)
	case vestaNet.TaxReport:
		fmt.Printf("[TAX] collected to date: %s\n", r.Detail)
	case vestaNet.ErrorReport:
		fmt.Printf("[ERROR] %s (order %q)\n", r.Detail, r.OrderUUID)
	}
}
