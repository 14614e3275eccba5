package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/eventops/os-indexer/internal/core/domain"
)

const orderText = `ORDEM DE SERVIÇO
Orçamento: 01234 aprovado Local: Salão Nobre
Cliente: ACME Produções LTDA Evento: Festa Anual de Confraternização
Data: 15/06/2025 A 17/06/2025 Horário: 20:00
Observações: montagem na véspera`

func fixedNow() time.Time {
	return time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
}

func newContentExtractor() *ContentExtractor {
	e := NewContentExtractor(DefaultScoring())
	e.now = fixedNow
	return e
}

func TestContentExtractFullDocument(t *testing.T) {
	out, err := newContentExtractor().Extract(orderText)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !out.Valid {
		t.Fatalf("Extract() valid = false, score %d, errors %v", out.Score, out.Errors)
	}
	if out.Score != 100 {
		t.Fatalf("Extract() score = %d, want 100", out.Score)
	}

	r := out.Record
	if r.OrderNumber != "01234" {
		t.Fatalf("order number = %q", r.OrderNumber)
	}
	if r.Client != "ACME Produções LTDA" {
		t.Fatalf("client = %q", r.Client)
	}
	if r.Event != "Festa Anual de Confraternização" {
		t.Fatalf("event = %q", r.Event)
	}
	if r.EventDate == nil || !r.EventDate.Equal(time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("event date = %v, want range start 2025-06-15", r.EventDate)
	}
	if r.DateOrigin != domain.DateFromContent {
		t.Fatalf("date origin = %q", r.DateOrigin)
	}
	if r.IsRevision {
		t.Fatalf("is revision = true for plain order")
	}
}

func TestContentExtractRevisionMarkers(t *testing.T) {
	for _, marker := range []string{"O.S ATUALIZADA", "revisão 2", "Versão 3", "rev 2"} {
		text := orderText + " " + marker
		out, err := newContentExtractor().Extract(text)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if !out.Record.IsRevision {
			t.Fatalf("marker %q not recognized as revision", marker)
		}
	}
}

func TestContentExtractTooShort(t *testing.T) {
	out, err := newContentExtractor().Extract("curto demais")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.Valid || out.Score != 0 {
		t.Fatalf("short content: valid = %v score = %d, want invalid 0", out.Valid, out.Score)
	}
	if out.Record != nil {
		t.Fatalf("short content should carry no record")
	}
}

func TestContentExtractQuotationRejectedEvenWithAnchor(t *testing.T) {
	text := orderText + "\nQTDE DIAS | VALOR UNIT | VALOR TOTAL"
	_, err := newContentExtractor().Extract(text)
	if !domain.IsKind(err, domain.ErrFinancialDocument) {
		t.Fatalf("Extract() error = %v, want ErrFinancialDocument", err)
	}
}

func TestContentExtractFinancialWithoutAnchorRejected(t *testing.T) {
	text := strings.Repeat("texto de preenchimento ", 5) + "Valor total do serviço: R$ 2.500,00"
	_, err := newContentExtractor().Extract(text)
	if !domain.IsKind(err, domain.ErrFinancialDocument) {
		t.Fatalf("Extract() error = %v, want ErrFinancialDocument", err)
	}
}

func TestContentExtractNonOrderSkipped(t *testing.T) {
	text := strings.Repeat("ata de reunião sem campos estruturados ", 3)
	_, err := newContentExtractor().Extract(text)
	if !domain.IsKind(err, domain.ErrNotAnOrder) {
		t.Fatalf("Extract() error = %v, want ErrNotAnOrder", err)
	}
}

func TestContentExtractIncompleteKeepsOrderNumber(t *testing.T) {
	text := "Orçamento: 777 confirmado Local: pátio externo " + strings.Repeat("x ", 20)
	out, err := newContentExtractor().Extract(text)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.Valid {
		t.Fatalf("order-number-only content should not be valid")
	}
	if out.Record == nil || out.Record.OrderNumber != "777" {
		t.Fatalf("incomplete record = %+v, want order 777", out.Record)
	}
	if out.Record.Client != domain.MissingText || out.Record.Event != domain.MissingText {
		t.Fatalf("incomplete record fields = %q/%q, want sentinels", out.Record.Client, out.Record.Event)
	}
	if out.Record.EventDate != nil || out.Record.DateOrigin != domain.DatePartial {
		t.Fatalf("incomplete record date = %v origin %q, want nil/partial", out.Record.EventDate, out.Record.DateOrigin)
	}
}

func TestContentExtractClientTruncated(t *testing.T) {
	longClient := strings.Repeat("A", 150)
	text := "Orçamento: 88 Local: anexo Cliente: " + longClient + " Evento: Congresso Data: 01/03/2025 Horário: 09:00"
	out, err := newContentExtractor().Extract(text)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len([]rune(out.Record.Client)) != 100 {
		t.Fatalf("client length = %d, want capped at 100", len([]rune(out.Record.Client)))
	}
	found := false
	for _, w := range out.Warnings {
		if strings.Contains(w, "truncated") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected truncation warning, got %v", out.Warnings)
	}
}

func TestContentExtractDateOutOfRangeWarns(t *testing.T) {
	text := "Orçamento: 99 Local: salão Cliente: ACME Evento: Baile Data: 10/05/1999 Horário: 21:00"
	out, err := newContentExtractor().Extract(text)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !out.Valid {
		t.Fatalf("outcome invalid: score %d errors %v", out.Score, out.Errors)
	}
	if out.Record.EventDate != nil {
		t.Fatalf("out-of-range date kept: %v", out.Record.EventDate)
	}
	if out.Score != 80 {
		t.Fatalf("score = %d, want 80 without date points", out.Score)
	}
}
