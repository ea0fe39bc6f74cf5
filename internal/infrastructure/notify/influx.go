package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/fatih/structs"
	client "github.com/influxdata/influxdb1-client/v2"
)

type InfluxConfig struct {
	URL      string
	User     string
	Password string
	Database string
}

// Influx records every event as a point in the "events" measurement.
type Influx struct {
	client   client.Client
	database string
}

func NewInflux(cfg InfluxConfig) (*Influx, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     cfg.URL,
		Username: cfg.User,
		Password: cfg.Password,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("influx client: %w", err)
	}
	db := cfg.Database
	if db == "" {
		db = "algos"
	}
	return &Influx{client: c, database: db}, nil
}

func (n *Influx) Name() string { return "influx" }

type eventPoint struct {
	Message string `structs:"message"`
	Count   int    `structs:"count"`
}

func (n *Influx) Notify(_ context.Context, e domain.Event) error {
	fields := structs.Map(eventPoint{Message: e.Message, Count: 1})
	for k, v := range e.Fields {
		switch v.(type) {
		case float64, float32, int, int64, bool, string:
			fields[k] = v
		}
	}
	tags := map[string]string{"kind": string(e.Kind)}
	if e.Engine != "" {
		tags["engine"] = e.Engine
	}
	if e.Symbol != "" {
		tags["symbol"] = e.Symbol
	}
	t := e.Time
	if t.IsZero() {
		t = time.Now()
	}
	return n.write("events", tags, fields, t)
}

// WriteStruct stores the exported fields of v as one point.
func (n *Influx) WriteStruct(measurement string, tags map[string]string, v interface{}) error {
	return n.write(measurement, tags, structs.Map(v), time.Now())
}

func (n *Influx) write(measurement string, tags map[string]string, fields map[string]interface{}, t time.Time) error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  n.database,
		Precision: "us",
	})
	if err != nil {
		return err
	}
	pt, err := client.NewPoint(measurement, tags, fields, t)
	if err != nil {
		return err
	}
	bp.AddPoint(pt)
	return n.client.Write(bp)
}

func (n *Influx) Close() error {
	return n.client.Close()
}
