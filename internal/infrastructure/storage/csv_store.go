package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"InventoryTracker/internal/domain"
	"InventoryTracker/internal/ports"
)

const (
	dateLayout = "2006-01-02"
)

// timeLayouts are tried in order when reading history files back in;
// values that match none of them load as null rather than failing.
var timeLayouts = []string{
	dateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

var vehicleColumns = []string{
	"car_id", "model_name", "price", "kilometers", "registration_date",
	"power_kw", "power_ps", "range_km", "equipment",
	"first_seen_date", "last_seen_date", "valid_from", "valid_to",
	"is_latest", "status", "link", "scrape_date",
}

var equipmentColumns = []string{
	"car_id", "category", "equipment_name",
	"valid_from", "valid_to", "is_latest", "scrape_date",
}

var scoreColumns = []string{
	"car_id", "value_efficiency_score", "age_usage_score",
	"performance_range_score", "equipment_score", "final_score",
	"valid_from", "valid_to", "is_latest", "scrape_date",
}

// CSVStore keeps the three history tables as CSV files with fixed
// column sets. Every save writes a complete replacement table to a
// temporary file first, so a crash mid-write never corrupts the
// previous history.
type CSVStore struct {
	vehiclePath   string
	equipmentPath string
	scoresPath    string
	logger        *slog.Logger
}

var _ ports.HistoryStore = (*CSVStore)(nil)

// NewCSVStore wires the three file locations.
func NewCSVStore(vehiclePath, equipmentPath, scoresPath string, logger *slog.Logger) *CSVStore {
	return &CSVStore{
		vehiclePath:   vehiclePath,
		equipmentPath: equipmentPath,
		scoresPath:    scoresPath,
		logger:        logger,
	}
}

// LoadVehicles reads the vehicle history. A missing or unreadable file
// degrades to an empty history: starting fresh is an acceptable
// recovery for a periodically re-run reconciliation.
func (s *CSVStore) LoadVehicles(_ context.Context) ([]domain.VehicleVersion, error) {
	rows, ok := s.readTable(s.vehiclePath, vehicleColumns)
	if !ok {
		return nil, nil
	}

	var history []domain.VehicleVersion
	for i, row := range rows {
		id, err := strconv.ParseInt(row["car_id"], 10, 64)
		if err != nil {
			s.warn("skipping vehicle history row with bad car_id", "file", s.vehiclePath, "row", i+2, "value", row["car_id"])
			continue
		}

		version := domain.VehicleVersion{
			Vehicle: domain.Vehicle{
				ID:               id,
				ModelName:        row["model_name"],
				Price:            parseNumeric(row["price"]),
				Kilometers:       parseNumeric(row["kilometers"]),
				PowerKW:          parseNumeric(row["power_kw"]),
				PowerPS:          parseNumeric(row["power_ps"]),
				RangeKM:          parseNumeric(row["range_km"]),
				RegistrationDate: row["registration_date"],
				Equipment:        parseEquipmentJSON(row["equipment"]),
				Link:             row["link"],
			},
			FirstSeen: parseTime(row["first_seen_date"]),
			LastSeen:  parseTime(row["last_seen_date"]),
			ValidFrom: parseTime(row["valid_from"]),
			ValidTo:   parseOptionalTime(row["valid_to"]),
			IsLatest:  parseBool(row["is_latest"]),
			Status:    domain.Status(row["status"]),
			ScrapedAt: parseTime(row["scrape_date"]),
		}
		history = append(history, version)
	}

	return history, nil
}

// LoadEquipment reads the equipment history with the same degrade-to-empty policy.
func (s *CSVStore) LoadEquipment(_ context.Context) ([]domain.EquipmentVersion, error) {
	rows, ok := s.readTable(s.equipmentPath, equipmentColumns)
	if !ok {
		return nil, nil
	}

	var history []domain.EquipmentVersion
	for i, row := range rows {
		id, err := strconv.ParseInt(row["car_id"], 10, 64)
		if err != nil {
			s.warn("skipping equipment history row with bad car_id", "file", s.equipmentPath, "row", i+2, "value", row["car_id"])
			continue
		}

		history = append(history, domain.EquipmentVersion{
			VehicleID: id,
			Category:  row["category"],
			Name:      row["equipment_name"],
			ValidFrom: parseTime(row["valid_from"]),
			ValidTo:   parseOptionalTime(row["valid_to"]),
			IsLatest:  parseBool(row["is_latest"]),
			ScrapedAt: parseTime(row["scrape_date"]),
		})
	}

	return history, nil
}

// LoadScores reads the scores history with the same degrade-to-empty policy.
func (s *CSVStore) LoadScores(_ context.Context) ([]domain.ScoreVersion, error) {
	rows, ok := s.readTable(s.scoresPath, scoreColumns)
	if !ok {
		return nil, nil
	}

	var history []domain.ScoreVersion
	for i, row := range rows {
		id, err := strconv.ParseInt(row["car_id"], 10, 64)
		if err != nil {
			s.warn("skipping scores history row with bad car_id", "file", s.scoresPath, "row", i+2, "value", row["car_id"])
			continue
		}

		history = append(history, domain.ScoreVersion{
			VehicleID: id,
			ScoreSet: domain.ScoreSet{
				ValueEfficiency:  parseNumeric(row["value_efficiency_score"]),
				AgeUsage:         parseNumeric(row["age_usage_score"]),
				PerformanceRange: parseNumeric(row["performance_range_score"]),
				Equipment:        parseNumeric(row["equipment_score"]),
				Final:            parseNumeric(row["final_score"]),
			},
			ValidFrom: parseTime(row["valid_from"]),
			ValidTo:   parseOptionalTime(row["valid_to"]),
			IsLatest:  parseBool(row["is_latest"]),
			ScrapedAt: parseTime(row["scrape_date"]),
		})
	}

	return history, nil
}

// Save persists the complete reconciliation result. Each table is
// encoded fully in memory and only then swapped into place.
func (s *CSVStore) Save(_ context.Context, result domain.ReconciliationResult) error {
	if err := s.writeTable(s.vehiclePath, vehicleColumns, encodeVehicles(result.Vehicles)); err != nil {
		return fmt.Errorf("save vehicle history: %w", err)
	}
	if err := s.writeTable(s.equipmentPath, equipmentColumns, encodeEquipment(result.Equipment)); err != nil {
		return fmt.Errorf("save equipment history: %w", err)
	}
	if err := s.writeTable(s.scoresPath, scoreColumns, encodeScores(result.Scores)); err != nil {
		return fmt.Errorf("save scores history: %w", err)
	}
	return nil
}

// readTable loads a CSV file into column-keyed rows. The bool result is
// false when there is no usable history; the reasons are logged, never
// returned, because an absent or corrupt file is a recoverable state.
func (s *CSVStore) readTable(path string, columns []string) ([]map[string]string, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.warn("history file unreadable, starting fresh", "file", path, "error", err)
		}
		return nil, false
	}

	// Strip a UTF-8 BOM left behind by spreadsheet tools.
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		s.warn("history file corrupt, starting fresh", "file", path, "error", err)
		return nil, false
	}
	if len(records) < 2 {
		return nil, false
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range columns {
		if _, ok := index[name]; !ok {
			s.warn("history file missing column, starting fresh", "file", path, "column", name)
			return nil, false
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(columns))
		for _, name := range columns {
			at := index[name]
			if at < len(record) {
				row[name] = strings.TrimSpace(record[at])
			}
		}
		rows = append(rows, row)
	}

	return rows, true
}

func (s *CSVStore) writeTable(path string, columns []string, rows [][]string) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(columns); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func encodeVehicles(history []domain.VehicleVersion) [][]string {
	rows := make([][]string, 0, len(history))
	for _, v := range history {
		rows = append(rows, []string{
			strconv.FormatInt(v.ID, 10),
			v.ModelName,
			domain.FormatNumeric(v.Price),
			domain.FormatNumeric(v.Kilometers),
			v.RegistrationDate,
			domain.FormatNumeric(v.PowerKW),
			domain.FormatNumeric(v.PowerPS),
			domain.FormatNumeric(v.RangeKM),
			encodeEquipmentJSON(v.Equipment),
			v.FirstSeen.Format(dateLayout),
			v.LastSeen.Format(dateLayout),
			v.ValidFrom.Format(dateLayout),
			formatOptionalTime(v.ValidTo),
			strconv.FormatBool(v.IsLatest),
			string(v.Status),
			v.Link,
			v.ScrapedAt.Format(time.RFC3339),
		})
	}
	return rows
}

func encodeEquipment(history []domain.EquipmentVersion) [][]string {
	rows := make([][]string, 0, len(history))
	for _, e := range history {
		rows = append(rows, []string{
			strconv.FormatInt(e.VehicleID, 10),
			e.Category,
			e.Name,
			e.ValidFrom.Format(dateLayout),
			formatOptionalTime(e.ValidTo),
			strconv.FormatBool(e.IsLatest),
			e.ScrapedAt.Format(time.RFC3339),
		})
	}
	return rows
}

func encodeScores(history []domain.ScoreVersion) [][]string {
	rows := make([][]string, 0, len(history))
	for _, sc := range history {
		rows = append(rows, []string{
			strconv.FormatInt(sc.VehicleID, 10),
			domain.FormatNumeric(sc.ValueEfficiency),
			domain.FormatNumeric(sc.AgeUsage),
			domain.FormatNumeric(sc.PerformanceRange),
			domain.FormatNumeric(sc.Equipment),
			domain.FormatNumeric(sc.Final),
			sc.ValidFrom.Format(dateLayout),
			formatOptionalTime(sc.ValidTo),
			strconv.FormatBool(sc.IsLatest),
			sc.ScrapedAt.Format(time.RFC3339),
		})
	}
	return rows
}

func encodeEquipmentJSON(equipment map[string][]string) string {
	if len(equipment) == 0 {
		return ""
	}
	raw, err := json.Marshal(equipment)
	if err != nil {
		return ""
	}
	return string(raw)
}

func parseEquipmentJSON(raw string) map[string][]string {
	if raw == "" {
		return nil
	}
	var equipment map[string][]string
	if err := json.Unmarshal([]byte(raw), &equipment); err != nil {
		return nil
	}
	return equipment
}

func parseNumeric(raw string) *float64 {
	if raw == "" || raw == domain.NullText {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &value
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.ToLower(raw))
	return err == nil && value
}

// parseTime is deliberately permissive: anything unparseable loads as
// the zero time instead of aborting the whole history.
func parseTime(raw string) time.Time {
	if t := parseOptionalTime(raw); t != nil {
		return *t
	}
	return time.Time{}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func parseOptionalTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == domain.NullText {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func (s *CSVStore) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
