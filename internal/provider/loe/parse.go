package loe

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/svitlo/svitlo-bot/internal/provider"
	"github.com/svitlo/svitlo-bot/internal/schedule"
)

// groupHeader matches "Група 3.1." at the start of a group block.
var groupHeader = regexp.MustCompile(`Група\s+(\d+\.\d+)\.`)

// menusResponse is the hydra collection returned by the menus endpoint.
type menusResponse struct {
	Type    string   `json:"@type"`
	Members []member `json:"hydra:member"`
}

type member struct {
	ID        int        `json:"id"`
	MenuItems []menuItem `json:"menuItems"`
}

type menuItem struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	RawHTML string `json:"rawHtml"`
}

// parseMenus turns a menus payload into a snapshot of raw per-group days.
// Group order follows the first appearance in the document.
func parseMenus(body []byte) (*schedule.Snapshot, []string, error) {
	var resp menusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("decode menus: %w", err)
	}
	if len(resp.Members) == 0 {
		return nil, nil, fmt.Errorf("menus response has no members")
	}

	var (
		items    []menuItem
		docIDs   []string
		warnings []string
	)
	for _, m := range resp.Members {
		docIDs = append(docIDs, strconv.Itoa(m.ID))
		items = append(items, m.MenuItems...)
	}

	snap := &schedule.Snapshot{Metadata: map[string]string{
		"documents": strings.Join(docIDs, ","),
	}}
	index := make(map[string]int)

	days := assignDays(items)
	for i, item := range items {
		day, ok := days[i]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("ignored menu item %q", item.Name))
			continue
		}
		snap.Metadata["item."+day.String()] = item.Name

		text, err := htmlText(item.RawHTML)
		if err != nil {
			return nil, warnings, fmt.Errorf("read markup of %q: %w", item.Name, err)
		}
		for _, block := range splitGroups(text) {
			ranges, skipped := provider.ExtractRanges(block.text)
			for _, s := range skipped {
				warnings = append(warnings, fmt.Sprintf("group %s: unreadable range %q", block.label, s))
			}

			pos, seen := index[block.label]
			if !seen {
				pos = len(snap.Groups)
				index[block.label] = pos
				snap.Groups = append(snap.Groups, schedule.RawGroup{Label: block.label})
			}
			snap.Groups[pos].Days = append(snap.Groups[pos].Days, schedule.RawDay{
				Day:       day,
				Outage:    true,
				Intervals: ranges,
			})
		}
	}
	return snap, warnings, nil
}

// assignDays maps item positions to days: an explicit "сьогодні"/"завтра" in
// the item name wins, otherwise the first free slot in document order.
// Items beyond today and tomorrow are left out.
func assignDays(items []menuItem) map[int]schedule.Day {
	out := make(map[int]schedule.Day)
	taken := make(map[schedule.Day]bool)
	for i, item := range items {
		name := strings.ToLower(item.Name)
		switch {
		case strings.Contains(name, "сьогодні") && !taken[schedule.Today]:
			out[i], taken[schedule.Today] = schedule.Today, true
		case strings.Contains(name, "завтра") && !taken[schedule.Tomorrow]:
			out[i], taken[schedule.Tomorrow] = schedule.Tomorrow, true
		}
	}
	for i := range items {
		if _, ok := out[i]; ok {
			continue
		}
		for _, d := range []schedule.Day{schedule.Today, schedule.Tomorrow} {
			if !taken[d] {
				out[i], taken[d] = d, true
				break
			}
		}
	}
	return out
}

type groupBlock struct {
	label string
	text  string
}

// splitGroups cuts text into "Група N.M." blocks; each block runs until the
// next header or the end of the text.
func splitGroups(text string) []groupBlock {
	locs := groupHeader.FindAllStringSubmatchIndex(text, -1)
	blocks := make([]groupBlock, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, groupBlock{
			label: text[loc[2]:loc[3]],
			text:  strings.TrimSpace(text[loc[1]:end]),
		})
	}
	return blocks
}

// htmlText returns the visible text of a markup fragment with whitespace
// collapsed to single spaces.
func htmlText(markup string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(markup))
	var parts []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			return strings.Join(strings.Fields(strings.Join(parts, " ")), " "), nil
		case html.TextToken:
			parts = append(parts, string(z.Text()))
		}
	}
}
