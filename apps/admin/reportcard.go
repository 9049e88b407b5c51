package main

import (
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
)

const reportCardSheet = "Report card"

var reportCardHeader = []interface{}{"Course", "Percent complete", "Exercise", "Order", "Score", "Approved"}

// writeReportCard exports the exercise scores of a student to an xlsx file: one row per exercise.
func writeReportCard(path string, student user.User, cards []progress.CourseScores) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportCardSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: "Report card", Subject: student.Name}); err != nil {
		return errors.Wrap(err, "setting doc properties")
	}

	row := 1
	setRow := func(values []interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return f.SetSheetRow(reportCardSheet, cell, &values)
	}

	if err := setRow(reportCardHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	if err = f.SetRowStyle(reportCardSheet, 1, 1, bold); err != nil {
		return errors.Wrap(err, "styling header")
	}
	if err = f.SetColWidth(reportCardSheet, "A", "C", 30); err != nil {
		return errors.Wrap(err, "sizing columns")
	}

	for _, card := range cards {
		if len(card.Scores) == 0 {
			if err = setRow([]interface{}{card.Course.Name, card.Percent}); err != nil {
				return errors.Wrap(err, "writing course row")
			}
			continue
		}
		for _, sc := range card.Scores {
			var score interface{}
			if sc.Score.Valid {
				score = sc.Score.Float64
			}
			approved := "no"
			if sc.Completed {
				approved = "yes"
			}
			values := []interface{}{card.Course.Name, card.Percent, sc.Chapter.Title, sc.Chapter.Order.String(), score, approved}
			if err = setRow(values); err != nil {
				return errors.Wrap(err, "writing score row")
			}
		}
	}

	return errors.Wrapf(f.SaveAs(path), "saving %s", path)
}
