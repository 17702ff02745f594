// Command loadtest fires concurrent counter orders at a running ledger and
// reports throughput, latency and how many deductions were clamped.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

type menuItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type orderLine struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type orderRequest struct {
	Items         []orderLine `json:"items"`
	OrderType     string      `json:"order_type"`
	PaymentMethod string      `json:"payment_method"`
}

type orderResponse struct {
	Clamped []json.RawMessage `json:"clamped"`
}

type stats struct {
	total, success, failed, clamped int64
	latencyNs, maxLatencyNs         int64
}

func (s *stats) observe(d time.Duration, ok bool, clamped int) {
	atomic.AddInt64(&s.total, 1)
	atomic.AddInt64(&s.latencyNs, int64(d))
	for {
		cur := atomic.LoadInt64(&s.maxLatencyNs)
		if int64(d) <= cur || atomic.CompareAndSwapInt64(&s.maxLatencyNs, cur, int64(d)) {
			break
		}
	}
	if ok {
		atomic.AddInt64(&s.success, 1)
	} else {
		atomic.AddInt64(&s.failed, 1)
	}
	atomic.AddInt64(&s.clamped, int64(clamped))
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "ledger base URL")
	concurrency := flag.Int("c", 50, "concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "test duration")
	flag.Parse()

	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        *concurrency * 2,
			MaxIdleConnsPerHost: *concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	items, err := fetchMenu(client, *baseURL)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if len(items) == 0 {
		log.Fatalf("❌ No available menu items; run the seed command first")
	}

	fmt.Println("🚀 Ledger load test")
	fmt.Printf("📍 URL: %s\n", *baseURL)
	fmt.Printf("👥 Workers: %d, duration: %s, menu items: %d\n", *concurrency, *duration, len(items))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	var s stats
	start := time.Now()
	deadline := start.Add(*duration)
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				elapsed := time.Since(start).Seconds()
				total := atomic.LoadInt64(&s.total)
				fmt.Printf("⏱️  [%.0fs] RPS: %.0f | total: %d | failed: %d | goroutines: %d\n",
					elapsed, float64(total)/elapsed, total, atomic.LoadInt64(&s.failed), runtime.NumGoroutine())
			case <-done:
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := worker; time.Now().Before(deadline); i++ {
				item := items[i%len(items)]
				body, _ := json.Marshal(orderRequest{
					Items:         []orderLine{{MenuItemID: item.ID, Quantity: 1 + i%3}},
					OrderType:     "takeaway",
					PaymentMethod: "cash",
				})
				t0 := time.Now()
				ok, clamped := postOrder(client, *baseURL, body)
				s.observe(time.Since(t0), ok, clamped)
			}
		}(w)
	}
	wg.Wait()
	close(done)

	elapsed := time.Since(start)
	total := atomic.LoadInt64(&s.total)
	if total == 0 {
		log.Fatalf("❌ No requests were sent")
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📈 Requests: %d in %s (%.0f RPS)\n", total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())
	fmt.Printf("✅ Succeeded: %d (%.1f%%)\n", s.success, float64(s.success)/float64(total)*100)
	fmt.Printf("❌ Failed: %d\n", s.failed)
	fmt.Printf("⚖️  Clamped deductions: %d\n", s.clamped)
	fmt.Printf("⏳ Latency avg: %s, max: %s\n",
		time.Duration(s.latencyNs/total).Round(time.Microsecond), time.Duration(s.maxLatencyNs).Round(time.Microsecond))
	fmt.Printf("\n💡 Daily totals: %s/api/v1/reports/daily\n", *baseURL)
}

func fetchMenu(client *http.Client, baseURL string) ([]menuItem, error) {
	resp, err := client.Get(baseURL + "/api/v1/menu/available")
	if err != nil {
		return nil, fmt.Errorf("fetch menu: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch menu: status %d", resp.StatusCode)
	}
	var out struct {
		Items []menuItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}
	return out.Items, nil
}

func postOrder(client *http.Client, baseURL string, body []byte) (bool, int) {
	resp, err := client.Post(baseURL+"/api/v1/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		return false, 0
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return false, 0
	}
	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return true, 0
	}
	return true, len(out.Clamped)
}
