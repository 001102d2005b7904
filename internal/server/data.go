package server

import (
	"encoding/json"
	"io"

	"github.com/schalkdaniel/distributed-lm/internal/coordinator"
)

func toJSON(i interface{}, w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(i)
}

func fromJSON(i interface{}, r io.Reader) error {
	d := json.NewDecoder(r)
	return d.Decode(i)
}

type InitializeRunRequest struct {
	Dir       string             `json:"dir"`
	Overwrite bool               `json:"overwrite"`
	Config    coordinator.Config `json:"config"`
}

type AdvanceRunRequest struct {
	Steps   int  `json:"steps"`
	Verbose bool `json:"verbose"`
}
