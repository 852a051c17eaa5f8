package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/gobblets/game/engine"
)

// Step is one click on a reserve slot or a board cell. Expect, when set, is
// the message the server must answer with.
type Step struct {
	Reserve *int   `json:"reserve,omitempty" yaml:"reserve,omitempty"`
	Cell    []int  `json:"cell,omitempty" yaml:"cell,omitempty"`
	Expect  string `json:"expect,omitempty" yaml:"expect,omitempty"`
}

func (s Step) String() string {
	if s.Reserve != nil {
		return fmt.Sprintf("reserve %d", *s.Reserve)
	}
	if len(s.Cell) == 2 {
		return fmt.Sprintf("cell (%d,%d)", s.Cell[0], s.Cell[1])
	}
	return "empty step"
}

func (s Step) validate() error {
	switch {
	case s.Reserve != nil && s.Cell != nil:
		return fmt.Errorf("step sets both reserve and cell")
	case s.Reserve == nil && s.Cell == nil:
		return fmt.Errorf("step sets neither reserve nor cell")
	case s.Cell != nil && len(s.Cell) != 2:
		return fmt.Errorf("cell needs [row, col], got %v", s.Cell)
	}
	return nil
}

// Script is a scripted game: the preset to start, the clicks to send and
// the expected winner once they are played
type Script struct {
	Name   string          `json:"name" yaml:"name"`
	Preset string          `json:"preset,omitempty" yaml:"preset,omitempty"`
	Steps  []Step          `json:"steps" yaml:"steps"`
	Winner engine.PlayerID `json:"winner,omitempty" yaml:"winner,omitempty"`
}

func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("script %q has no steps", s.Name)
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	switch s.Winner {
	case "", engine.FirstPlayerID, engine.SecondPlayerID:
	default:
		return fmt.Errorf("unknown winner %q", s.Winner)
	}
	return nil
}

// DecodeScript parses a script in the format named by ext
func DecodeScript(ext string, data []byte) (*Script, error) {
	var script Script
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &script); err != nil {
			return nil, fmt.Errorf("failed to parse script: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &script); err != nil {
			return nil, fmt.Errorf("failed to parse script: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported script format %q", ext)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	script, err := DecodeScript(filepath.Ext(path), data)
	if err != nil {
		return nil, err
	}
	if script.Name == "" {
		script.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return script, nil
}

func reserve(slot int, expect string) Step {
	return Step{Reserve: &slot, Expect: expect}
}

func cell(row, col int, expect string) Step {
	return Step{Cell: []int{row, col}, Expect: expect}
}

// DefaultScript walks through every selection outcome and ends with
// player1 completing the top row
func DefaultScript() *Script {
	return &Script{
		Name: "top-row",
		Steps: []Step{
			cell(0, 0, engine.MsgInvalidSelection),
			reserve(0, engine.MsgSelectedStackPiece),
			reserve(0, engine.MsgDeselectedStackPiece),
			reserve(0, engine.MsgSelectedStackPiece),
			cell(0, 0, engine.MsgPlayedStackPiece),

			// a lone piece cannot be covered from the reserve
			reserve(0, engine.MsgSelectedStackPiece),
			cell(0, 0, engine.MsgInvalidMove),
			reserve(0, engine.MsgDeselectedStackPiece),
			reserve(0, engine.MsgSelectedStackPiece),
			cell(3, 0, engine.MsgPlayedStackPiece),

			reserve(0, engine.MsgSelectedStackPiece),
			cell(0, 1, engine.MsgPlayedStackPiece),
			reserve(1, engine.MsgSelectedStackPiece),
			cell(3, 1, engine.MsgPlayedStackPiece),
			reserve(0, engine.MsgSelectedStackPiece),
			cell(0, 2, engine.MsgPlayedStackPiece),

			cell(3, 1, engine.MsgSelectedBoardPiece),
			cell(3, 1, engine.MsgDeselectedBoardPiece),
			reserve(2, engine.MsgSelectedStackPiece),
			cell(2, 3, engine.MsgPlayedStackPiece),

			reserve(0, engine.MsgSelectedStackPiece),
			cell(0, 3, engine.MsgPlayedStackPiece),
		},
		Winner: engine.FirstPlayerID,
	}
}
