package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"tv-executor-go/config"
	"tv-executor-go/gateway"
	"tv-executor-go/symbols"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	symbol := flag.String("symbol", "SOLUSDT", "查询的合约符号（TV 格式也可，如 BYBIT:SOLUSDT.P）")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	client := &gateway.BybitRESTClient{
		BaseURL:      cfg.Gateway.BaseURL,
		APIKey:       cfg.Gateway.APIKey,
		Secret:       cfg.Gateway.APISecret,
		RecvWindowMs: cfg.Gateway.RecvWindowMs,
		HTTPClient:   gateway.NewDefaultHTTPClient(),
	}

	normalized := symbols.Normalize(*symbol)
	mapper := symbols.NewMapper(cfg.Symbols.Translate, cfg.Symbols.PriceMult)
	contract, mult := mapper.Resolve(normalized)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pos, err := client.GetPosition(ctx, contract)
	if err != nil {
		log.Fatalf("查询持仓失败: %v", err)
	}
	if pos.Flat() {
		fmt.Printf("%s 无持仓\n", contract)
	} else {
		fmt.Printf("%s side=%s size=%g\n", contract, pos.Side, pos.Size)
	}
	if mult != 1 {
		fmt.Printf("priceMult=%g (TV %s -> %s)\n", mult, normalized, contract)
	}

	limits, err := client.GetInstrumentLimits(ctx, contract)
	if err != nil {
		log.Fatalf("查询合约参数失败: %v", err)
	}
	fmt.Printf("minOrderQty=%s qtyStep=%s\n", limits.MinQty, limits.Step)
}
