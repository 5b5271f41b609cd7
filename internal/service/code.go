package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shipline-next/internal/constants"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateTrackingCode 生成运单编号（SHIP-YYYYMMDD-XXXXX）
func generateTrackingCode(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", constants.TrackingCodePrefix, now.Format("20060102"), randCode(5))
}

// generateBatchCode 生成批次编号（BATCH-YYYYMMDD-XXXX）
func generateBatchCode(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", constants.BatchCodePrefix, now.Format("20060102"), randCode(4))
}

func randCode(length int) string {
	var b strings.Builder
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			b.WriteByte(codeAlphabet[0])
			continue
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String()
}
