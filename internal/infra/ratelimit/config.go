package ratelimit

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseRatesEnv parses the FETCH_RATE_LIMITS environment-variable format:
// comma-separated "domain=requests_per_second" pairs, e.g.
// "example.com=1,news.example.org=0.2". An empty or unset value yields an
// empty map, meaning every domain bypasses the limiter.
func ParseRatesEnv(val string) (map[string]float64, error) {
	rates := make(map[string]float64)
	val = strings.TrimSpace(val)
	if val == "" {
		return rates, nil
	}

	for _, pair := range strings.Split(val, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid rate entry %q: expected domain=rate", pair)
		}
		domain := strings.TrimSpace(parts[0])
		rate, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate for domain %q: %w", domain, err)
		}
		if domain == "" || rate <= 0 {
			return nil, fmt.Errorf("invalid rate entry %q: domain and rate must be non-empty/positive", pair)
		}
		rates[domain] = rate
	}
	return rates, nil
}

// LoadRatesFromEnv reads FETCH_RATE_LIMITS and parses it with ParseRatesEnv.
func LoadRatesFromEnv() (map[string]float64, error) {
	return ParseRatesEnv(os.Getenv("FETCH_RATE_LIMITS"))
}
