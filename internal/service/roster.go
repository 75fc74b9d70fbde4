package service

import (
	"context"

	"github.com/alan-neves/fechaduras/internal/model"
	"github.com/alan-neves/fechaduras/internal/replicado"
)

// BuildRoster computes the authoritative roster for one lock from its four
// sources. Entries are merged by key in the order unit personnel → program
// students → manual users → external users, with later sources overriding
// earlier ones on key collision. Exactly one entry per key comes out, in
// first-insertion order.
//
// A directory failure fails the whole build: reconciling against a partial
// roster could drop legitimate affiliations on the device side.
func (s *syncService) BuildRoster(ctx context.Context, lock *model.Lock) ([]model.RosterEntry, error) {
	var (
		unitPeople    []replicado.Person
		programPeople []replicado.Person
		err           error
	)

	if codes := lock.UnitCodes(); len(codes) > 0 {
		unitPeople, err = s.directory.FindPersonnelByUnits(ctx, codes)
		if err != nil {
			return nil, err
		}
	}
	if codes := lock.ProgramCodes(); len(codes) > 0 {
		programPeople, err = s.directory.FindStudentsByPrograms(ctx, codes)
		if err != nil {
			return nil, err
		}
	}

	// everyone reachable through a unit or program, used only to filter
	// manual users out of the "manual" bucket
	affiliated := make(map[int]bool, len(unitPeople)+len(programPeople))
	for _, p := range unitPeople {
		affiliated[p.Codpes] = true
	}
	for _, p := range programPeople {
		affiliated[p.Codpes] = true
	}

	roster := make(map[int]model.RosterEntry)
	var order []int
	put := func(e model.RosterEntry) {
		if _, seen := roster[e.Key]; !seen {
			order = append(order, e.Key)
		}
		roster[e.Key] = e
	}

	for _, p := range unitPeople {
		put(model.RosterEntry{Key: p.Codpes, Name: p.Name})
	}
	for _, p := range programPeople {
		put(model.RosterEntry{Key: p.Codpes, Name: p.Name})
	}
	for _, u := range lock.Users {
		// a person already affiliated via unit or program is represented
		// by the directory entry, not duplicated as manual
		if affiliated[u.Codpes] {
			continue
		}
		put(model.RosterEntry{Key: u.Codpes, Name: u.Name})
	}
	for _, e := range lock.ExternalUsers {
		put(model.RosterEntry{
			Key:      e.DeviceKey(s.offset),
			Name:     e.DeviceName(),
			External: true,
		})
	}

	out := make([]model.RosterEntry, 0, len(order))
	for _, key := range order {
		out = append(out, roster[key])
	}
	return out, nil
}
