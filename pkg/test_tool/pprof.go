package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"campus_chat_service/pkg/config"
	"campus_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// StartPprof 非 production 環境時在 addr 上啟動 pprof 監控伺服器
func StartPprof(addr string) {
	if config.IsProduction() {
		logger.Log.Info("Production environment detected, pprof is disabled.")
		return
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Log.Error("pprof server failed", zap.Error(err))
		}
	}()
}
