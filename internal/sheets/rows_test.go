package sheets

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripspese/internal/core"
)

func sampleReport() core.Report {
	at := time.Date(2024, 11, 2, 9, 0, 0, 0, time.UTC)
	roster := []string{"Dattu", "Ganesh", "Shubham"}
	expenses := []core.Expense{
		core.NewExpense("b", "fuel", []string{"Dattu", "Ganesh", "Shubham"}, "", 100, "", at.Add(time.Hour)),
		core.NewExpense("a", "food", []string{"Dattu"}, "chai, samosa", 20.5, "", at),
	}
	return core.NewReport(at, roster, expenses)
}

func TestExpenseRows(t *testing.T) {
	rows := ExpenseRows(sampleReport())

	require.Len(t, rows, 3)
	assert.Equal(t, ExpenseHeader, rows[0])
	assert.Equal(t, []string{"1", "fuel", "100.00", "Dattu, Ganesh, Shubham", "33.33", "", "Nov 2, 2024"}, rows[1])
	assert.Equal(t, []string{"2", "food", "20.50", "Dattu", "20.50", "chai, samosa", "Nov 2, 2024"}, rows[2])
}

func TestTotalsRows(t *testing.T) {
	rows := TotalsRows(sampleReport())

	assert.Equal(t, [][]string{
		TotalsHeader,
		{"Dattu", "53.83"},
		{"Ganesh", "33.33"},
		{"Shubham", "33.33"},
		{TotalRowLabel, "120.50"},
	}, rows)
}

func TestTotalsRowsEmptyLedger(t *testing.T) {
	rows := TotalsRows(core.NewReport(time.Now(), []string{"Dattu"}, nil))
	assert.Equal(t, [][]string{TotalsHeader, {"Dattu", "0.00"}, {TotalRowLabel, "0.00"}}, rows)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport()))

	want := "Sr. No,Expense Type,Amount,Split Between,Split Amount,Note,Date\n" +
		"1,fuel,100.00,\"Dattu, Ganesh, Shubham\",33.33,,\"Nov 2, 2024\"\n" +
		"2,food,20.50,Dattu,20.50,\"chai, samosa\",\"Nov 2, 2024\"\n" +
		"\n" +
		"Name,Total Amount\n" +
		"Dattu,53.83\n" +
		"Ganesh,33.33\n" +
		"Shubham,33.33\n" +
		"TOTAL,120.50\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVNeutralizesFormulas(t *testing.T) {
	at := time.Date(2024, 11, 2, 9, 0, 0, 0, time.UTC)
	notes := []string{"=HYPERLINK(\"http://evil\")", "+1", "-2", "@SUM(A1)", "\tx", "plain"}
	var expenses []core.Expense
	for i, n := range notes {
		expenses = append(expenses, core.NewExpense(string(rune('a'+i)), "food", []string{"Dattu"}, n, 10, "", at.Add(time.Duration(-i)*time.Minute)))
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, core.NewReport(at, []string{"Dattu"}, expenses)))

	records, err := csv.NewReader(strings.NewReader(strings.SplitN(buf.String(), "\n\n", 2)[0])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(notes)+1)
	for i, n := range notes {
		got := records[i+1][5]
		if n == "plain" {
			assert.Equal(t, n, got)
			continue
		}
		assert.Equal(t, "'"+n, got)
	}
	// amounts stay numeric
	assert.Equal(t, "10.00", records[1][2])
}
