package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type step struct {
	Name     string          `json:"name"`
	Method   string          `json:"method"`
	Path     string          `json:"path"`
	Body     json.RawMessage `json:"body,omitempty"`
	Expect   int             `json:"expect"`
	Critical bool            `json:"critical"`
}

type plan struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Steps    []step `json:"steps"`
}

type result struct {
	Step     step
	Status   int
	Duration time.Duration
	Error    error
}

func main() {
	var (
		base     string
		prefix   string
		planPath string
		classID  string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "Portal base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API prefix")
	flag.StringVar(&planPath, "plan", filepath.Join("scripts", "smoke", "plan.json"), "Path to JSON smoke plan")
	flag.StringVar(&classID, "class", "9A", "Class used for {class} placeholders")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	p, err := loadPlan(planPath)
	if err != nil {
		log.Fatalf("failed to load plan: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	apiBase := strings.TrimRight(base, "/") + "/" + strings.Trim(prefix, "/")

	token, err := login(client, apiBase, p.Email, p.Password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	now := time.Now()
	replacer := strings.NewReplacer(
		"{class}", classID,
		"{today}", now.Format("2006-01-02"),
		"{yesterday}", now.AddDate(0, 0, -1).Format("2006-01-02"),
		"{tomorrow}", now.AddDate(0, 0, 1).Format("2006-01-02"),
	)

	var (
		results  []result
		breaking int
		warnings int
	)
	for _, s := range p.Steps {
		s.Path = replacer.Replace(s.Path)
		res := runStep(client, apiBase, token, s)
		if res.Error != nil || res.Status != s.Expect {
			if s.Critical {
				breaking++
			} else {
				warnings++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Breaking failures: %d, Warnings: %d\n", breaking, warnings)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadPlan(path string) (*plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("no steps defined in %s", path)
	}
	return &p, nil
}

func login(client *http.Client, apiBase, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := client.Post(apiBase+"/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", err
	}
	if envelope.Data.AccessToken == "" {
		return "", errors.New("login response carried no access token")
	}
	return envelope.Data.AccessToken, nil
}

func runStep(client *http.Client, apiBase, token string, s step) result {
	res := result{Step: s}
	method := strings.ToUpper(strings.TrimSpace(s.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := s.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if len(s.Body) > 0 {
		body = bytes.NewReader(s.Body)
	}
	req, err := http.NewRequest(method, apiBase+path, body)
	if err != nil {
		res.Error = err
		return res
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	res.Status = resp.StatusCode
	return res
}

func printReport(results []result) {
	fmt.Println("Portal Smoke Report")
	fmt.Println("===================")
	for _, res := range results {
		status := "OK"
		switch {
		case res.Error != nil:
			status = "ERROR"
		case res.Status != res.Step.Expect:
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s %s\n", status, res.Step.Name, res.Step.Method, res.Step.Path)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status: %d (expected %d) in %s | Critical: %t\n", res.Status, res.Step.Expect, res.Duration, res.Step.Critical)
	}
}
