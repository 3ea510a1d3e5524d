package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// 向本地 webhook 发一条合成告警，用于部署后的联通性检查。
func main() {
	url := flag.String("url", "http://127.0.0.1:8080/tv/webhook", "webhook 地址")
	key := flag.String("key", "", "webhook 密钥（TV_WEBHOOK_SECRET）")
	action := flag.String("action", "ENTER_LONG", "动作：ENTER_LONG/ENTER_SHORT/SOFT_EXIT_LONG/SOFT_EXIT_SHORT/MOVE_SL_BE_LONG/MOVE_SL_BE_SHORT")
	symbol := flag.String("symbol", "BYBIT:SOLUSDT.P", "TV 符号")
	qty := flag.String("qty", "", "数量（留空用配置默认）")
	sl := flag.String("sl", "", "止损价")
	tp := flag.String("tp", "", "止盈价")
	flag.Parse()

	if *key == "" {
		log.Fatal("必须提供 -key")
	}

	payload := map[string]interface{}{
		"key":    *key,
		"action": *action,
		"symbol": *symbol,
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if *qty != "" {
		payload["qty"] = *qty
	}
	if *sl != "" {
		payload["sl"] = *sl
	}
	if *tp != "" {
		payload["tp"] = *tp
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("编码失败: %v", err)
	}
	resp, err := http.Post(*url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s\n%s\n", resp.Status, data)
}
