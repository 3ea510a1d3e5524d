package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign 计算 Bybit v5 签名：HMAC-SHA256(prehash) 的 hex 编码。
// prehash = timestamp + apiKey + recvWindow + (queryString | body)。
func Sign(prehash, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(prehash))
	return hex.EncodeToString(mac.Sum(nil))
}

// SortedQuery renders params as k=v&k=v sorted by key. Bybit signs the exact
// query string, so the encoded form and the signed form must match.
func SortedQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, "&")
}
