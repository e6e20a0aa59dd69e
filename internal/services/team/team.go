// Package team отдаёт справочник команд из статического JSON-файла.
package team

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrTeamNotFound возвращается, если команды с таким ID нет.
var ErrTeamNotFound = errors.New("team not found")

// Team описывает команду.
type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Directory неизменяемый справочник команд, загруженный при старте.
type Directory struct {
	teams []Team
	byID  map[string]Team
}

// Load читает справочник из path. Отсутствующий файл даёт пустой справочник.
func Load(path string) (*Directory, error) {
	const op = "services.team.Load"

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var teams []Team
	if err := json.Unmarshal(data, &teams); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return New(teams), nil
}

// New создаёт справочник из списка команд.
func New(teams []Team) *Directory {
	d := &Directory{
		teams: make([]Team, 0, len(teams)),
		byID:  make(map[string]Team, len(teams)),
	}
	for _, t := range teams {
		if t.Members == nil {
			t.Members = []string{}
		}
		d.teams = append(d.teams, t)
		d.byID[t.ID] = t
	}
	return d
}

// List возвращает все команды в порядке файла.
func (d *Directory) List() []Team {
	out := make([]Team, len(d.teams))
	copy(out, d.teams)
	return out
}

// Get возвращает команду по ID.
func (d *Directory) Get(id string) (Team, error) {
	t, ok := d.byID[id]
	if !ok {
		return Team{}, ErrTeamNotFound
	}
	return t, nil
}
