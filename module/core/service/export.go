package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
)

const defaultExportDays = 30

// Export renders the device's locations of the last days as csv, json or kml.
func (s *LocationService) Export(ctx context.Context, deviceID, format string, days int) (*domain.Export, error) {
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" && format != "kml" {
		return nil, domain.ErrUnsupportedExportFormat
	}
	if days <= 0 {
		days = defaultExportDays
	}

	now := s.now().UTC()
	locations, err := s.repo.GetHistory(ctx, &domain.HistoryQuery{
		DeviceID: deviceID,
		Start:    now.AddDate(0, 0, -days),
		End:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("export history: %w", err)
	}

	var body []byte
	switch format {
	case "csv":
		body, err = encodeCSV(locations)
		return &domain.Export{Filename: deviceID + "_history.csv", ContentType: "text/csv", Body: body}, err
	case "kml":
		body, err = encodeKML(deviceID, locations)
		return &domain.Export{Filename: deviceID + "_history.kml", ContentType: "application/vnd.google-earth.kml+xml", Body: body}, err
	default:
		body, err = json.Marshal(struct {
			DeviceID   string                  `json:"device_id"`
			ExportDate time.Time               `json:"export_date"`
			Locations  []domain.DeviceLocation `json:"locations"`
		}{deviceID, now, locations})
		return &domain.Export{Filename: deviceID + "_history.json", ContentType: "application/json", Body: body}, err
	}
}

func encodeCSV(locations []domain.DeviceLocation) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Timestamp", "Latitude", "Longitude", "Source", "Accuracy", "Speed", "Battery", "Signal Strength"})
	for _, l := range locations {
		_ = w.Write([]string{
			l.Timestamp.UTC().Format(time.RFC3339),
			formatFloat(l.Location.Lat),
			formatFloat(l.Location.Lon),
			string(l.Location.Source),
			formatFloat(l.Location.Accuracy),
			formatOptionalFloat(l.Location.Speed),
			formatOptionalInt(l.Meta.BatteryLevel),
			formatOptionalInt(l.Meta.SignalStrength),
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

type kmlDocument struct {
	XMLName  xml.Name `xml:"kml"`
	Xmlns    string   `xml:"xmlns,attr"`
	Document struct {
		Name        string         `xml:"name"`
		Description string         `xml:"description"`
		Placemarks  []kmlPlacemark `xml:"Placemark"`
	} `xml:"Document"`
}

type kmlPlacemark struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Point       struct {
		Coordinates string `xml:"coordinates"`
	} `xml:"Point"`
}

func encodeKML(deviceID string, locations []domain.DeviceLocation) ([]byte, error) {
	doc := kmlDocument{Xmlns: "http://www.opengis.net/kml/2.2"}
	doc.Document.Name = "Device " + deviceID + " Location History"
	doc.Document.Description = "Location tracking data"
	for _, l := range locations {
		var pm kmlPlacemark
		pm.Name = l.Timestamp.UTC().Format("2006-01-02 15:04:05")
		pm.Description = fmt.Sprintf("Source: %s, Accuracy: %sm", l.Location.Source, formatFloat(l.Location.Accuracy))
		pm.Point.Coordinates = formatFloat(l.Location.Lon) + "," + formatFloat(l.Location.Lat) + ",0"
		doc.Document.Placemarks = append(doc.Document.Placemarks, pm)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatOptionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}
