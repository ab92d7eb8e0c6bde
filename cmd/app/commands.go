package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/versemark/internal/client"
	"github.com/starford/versemark/internal/models"
	"github.com/starford/versemark/internal/placement"
	"github.com/starford/versemark/internal/reader"
	"github.com/starford/versemark/internal/verse"
)

// remoteFlags are shared by the commands that talk to a running server.
func remoteFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Usage:   "Base URL of the API",
			Value:   "http://localhost:8080/api",
			Sources: cli.EnvVars("VERSEMARK_SERVER"),
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "Bearer token",
			Sources: cli.EnvVars("VERSEMARK_TOKEN"),
		},
		&cli.StringFlag{
			Name:     "location",
			Aliases:  []string{"l"},
			Usage:    "Chapter as version/book/chapter, e.g. kjv/GEN/1",
			Required: true,
		},
	}, extra...)
}

func versesFlag() cli.Flag {
	return &cli.StringFlag{Name: "verses", Usage: "Verse numbers, e.g. 1,3-5", Required: true}
}

func parseLocation(s string) (models.Location, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return models.Location{}, fmt.Errorf("location %q: want version/book/chapter", s)
	}
	loc := models.Location{VersionID: parts[0], BookID: parts[1], ChapterID: parts[2]}
	return loc, loc.Validate()
}

// openSession connects to the server and loads the chapter named by
// --location. Upstream failures are also printed to stderr.
func openSession(ctx context.Context, cmd *cli.Command) (*reader.Session, error) {
	loc, err := parseLocation(cmd.String("location"))
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	c := client.New(cmd.String("server"), client.WithToken(cmd.String("token")), client.WithLogger(logger))
	s := reader.New(c, c,
		reader.WithLogger(logger),
		reader.WithNotifier(reader.NotifierFunc(func(err error) {
			fmt.Fprintf(os.Stderr, "versemark: %v\n", err)
		})),
	)
	if err := s.GoTo(ctx, loc); err != nil {
		return nil, err
	}
	return s, nil
}

func selectVerses(s *reader.Session, list string) error {
	numbers, err := verse.ParseVerseList(list)
	if err != nil {
		return err
	}
	return s.SelectVerses(numbers...)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func highlightCommand() *cli.Command {
	return &cli.Command{
		Name:  "highlight",
		Usage: "Toggle a highlight color on verses of a chapter",
		Flags: remoteFlags(
			versesFlag(),
			&cli.StringFlag{Name: "color", Usage: "Hex color, e.g. #ffee00", Required: true},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(ctx, cmd)
			if err != nil {
				return err
			}
			if err := selectVerses(s, cmd.String("verses")); err != nil {
				return err
			}
			action, err := s.Highlight(ctx, cmd.String("color"))
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", action, cmd.String("color"))
			return nil
		},
	}
}

func noteCommand() *cli.Command {
	return &cli.Command{
		Name:  "note",
		Usage: "Add, edit or delete notes",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Attach a note to verses of a chapter",
				Flags: remoteFlags(
					versesFlag(),
					&cli.StringFlag{Name: "text", Usage: "Note text", Required: true},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := openSession(ctx, cmd)
					if err != nil {
						return err
					}
					if err := selectVerses(s, cmd.String("verses")); err != nil {
						return err
					}
					return s.AddNote(ctx, cmd.String("text"))
				},
			},
			{
				Name:  "edit",
				Usage: "Replace the text of a note of a chapter",
				Flags: remoteFlags(
					&cli.StringFlag{Name: "id", Usage: "Note ID", Required: true},
					&cli.StringFlag{Name: "text", Usage: "Note text", Required: true},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := openSession(ctx, cmd)
					if err != nil {
						return err
					}
					return s.EditNote(ctx, cmd.String("id"), cmd.String("text"))
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a note of a chapter",
				Flags: remoteFlags(
					&cli.StringFlag{Name: "id", Usage: "Note ID", Required: true},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := openSession(ctx, cmd)
					if err != nil {
						return err
					}
					return s.DeleteNote(ctx, cmd.String("id"))
				},
			},
		},
	}
}

func marksCommand() *cli.Command {
	return &cli.Command{
		Name:  "marks",
		Usage: "Show the highlights and notes of a chapter",
		Flags: remoteFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(ctx, cmd)
			if err != nil {
				return err
			}
			for _, vm := range s.Marks() {
				line := vm.VersionedVerseID
				if color, ok := vm.Color(); ok {
					line += "  " + color
				}
				for _, n := range vm.Notes {
					line += fmt.Sprintf("  [%s] %s", n.ID, n.Text)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func layoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "layout",
		Usage: "Place the notes of a chapter for measured geometry",
		Flags: remoteFlags(
			&cli.StringFlag{Name: "geometry", Usage: "JSON file with anchors and note sizes", Required: true},
			&cli.FloatFlag{Name: "width", Usage: "Viewport width", Required: true},
			&cli.FloatFlag{Name: "mid", Usage: "Horizontal midpoint of the text column"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			data, err := os.ReadFile(cmd.String("geometry"))
			if err != nil {
				return err
			}
			var g placement.Geometry
			if err := json.Unmarshal(data, &g); err != nil {
				return fmt.Errorf("geometry %s: %w", cmd.String("geometry"), err)
			}
			s, err := openSession(ctx, cmd)
			if err != nil {
				return err
			}
			l, err := s.Layout(g, cmd.Float("width"), cmd.Float("mid"))
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, l)
		},
	}
}
