// Package report exports the player ledger as CSV.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/league-auction/internal/store"
)

// Path is the HTTP path the export is served on.
const Path = "/export/players.csv"

// Columns is the export header. The dataset columns come first so an export
// can be fed back in as a players dataset.
var Columns = []string{
	"Name",
	"Flat No",
	"Skill",
	"Preferred Playing Position",
	"Batting Skill Level",
	"Bowler Skill Level",
	"Bowler Type",
	"Wicket Keeper",
	"points",
	"owner",
	"auction_price",
	"auction_status",
}

// Exporter renders the player ledger.
type Exporter struct {
	players store.PlayerRepository
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewExporter creates an Exporter.
func NewExporter(players store.PlayerRepository, logger *slog.Logger, tp trace.TracerProvider) *Exporter {
	return &Exporter{
		players: players,
		logger:  logger,
		tracer:  tp.Tracer("github.com/jensholdgaard/league-auction/internal/report"),
	}
}

// Rows returns every player sorted by points descending, then name.
func (e *Exporter) Rows(ctx context.Context) ([]store.Player, error) {
	ctx, span := e.tracer.Start(ctx, "Exporter.Rows")
	defer span.End()

	players, err := e.players.List(ctx, store.PlayerFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	Sort(players)
	span.SetAttributes(attribute.Int("players.count", len(players)))
	return players, nil
}

// WriteCSV writes the full export to w.
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer) error {
	players, err := e.Rows(ctx)
	if err != nil {
		return err
	}
	return Write(w, players)
}

// Handler serves the export as a file download.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		players, err := e.Rows(r.Context())
		if err != nil {
			e.logger.ErrorContext(r.Context(), "export failed", slog.Any("error", err))
			http.Error(w, "export unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="players.csv"`)
		if r.Method == http.MethodHead {
			return
		}
		if err := Write(w, players); err != nil {
			e.logger.ErrorContext(r.Context(), "writing export", slog.Any("error", err))
		}
	})
}

// Sort orders players by points descending, then name ascending.
func Sort(players []store.Player) {
	slices.SortStableFunc(players, func(a, b store.Player) int {
		if a.Points != b.Points {
			return b.Points - a.Points
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// Write renders players as CSV in the given order. Owner and price are blank
// for unsold players.
func Write(w io.Writer, players []store.Player) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, p := range players {
		owner, price := "", ""
		if p.Sold() {
			owner, price = p.Owner, strconv.Itoa(p.Price)
		}
		rec := []string{
			p.Name,
			p.FlatNo,
			p.Skill,
			p.Position,
			p.BattingLevel,
			p.BowlingLevel,
			p.BowlingStyle,
			p.Wicketkeeper,
			strconv.Itoa(p.Points),
			owner,
			price,
			string(p.Tier),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing %s: %w", p.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
