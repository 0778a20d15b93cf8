package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const exportTimeLayout = "2006-01-02 15:04:05"

var csvHeader = []string{
	"id", "title", "description", "amount", "currency", "status",
	"counterparty", "due_date", "paid_at", "created_at",
}

// ExportFile はダウンロード用に整形された債務一覧です。
type ExportFile struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Export は所有者の債務を json か csv で書き出します。
func (u *debtUsecase) Export(ctx context.Context, ownerID uint, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "json" && format != "csv" {
		return nil, ErrUnsupportedFormat
	}

	ds, err := u.debts.ListAllOwned(ctx, ownerID, ExportLimit)
	if err != nil {
		return nil, fmt.Errorf("list debts for export: %w", err)
	}
	views, err := u.views(ctx, ds)
	if err != nil {
		return nil, err
	}

	stamp := u.now().Format("20060102_150405")
	switch format {
	case "json":
		b, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json export: %w", err)
		}
		return &ExportFile{Data: b, ContentType: "application/json", FileName: "debts_" + stamp + ".json"}, nil
	default:
		b, err := encodeCSV(views)
		if err != nil {
			return nil, fmt.Errorf("encode csv export: %w", err)
		}
		return &ExportFile{Data: b, ContentType: "text/csv", FileName: "debts_" + stamp + ".csv"}, nil
	}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(exportTimeLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// encodeCSV は固定の列順で書き出します。区切り文字を含む値は encoding/csv がクォートします。
func encodeCSV(views []DebtView) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, v := range views {
		row := []string{
			strconv.FormatUint(uint64(v.ID), 10),
			v.Title,
			deref(v.Description),
			v.Amount.StringFixed(2),
			v.Currency,
			v.Status,
			deref(v.DebtorName),
			formatOptionalTime(v.DueDate),
			formatOptionalTime(v.PaidAt),
			v.CreatedAt.UTC().Format(exportTimeLayout),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
