package util

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/AnaEHC/semaforo-app/models"
)

// RenderStatusReport writes an HTML page with the status distribution of the
// given clients and, per coordinator, how many clients sit in each status.
func RenderStatusReport(w io.Writer, title string, summaries []models.ClientSummary) error {
	counts := map[models.Status]int{}
	byCal := map[string]map[models.Status]int{}
	var cals []string
	for _, s := range summaries {
		counts[s.Status]++
		if _, ok := byCal[s.Cal]; !ok {
			byCal[s.Cal] = map[models.Status]int{}
			cals = append(cals, s.Cal)
		}
		byCal[s.Cal][s.Status]++
	}

	pieData := make([]opts.PieData, 0, len(models.Statuses))
	for _, st := range models.Statuses {
		if counts[st] == 0 {
			continue
		}
		pieData = append(pieData, opts.PieData{
			Name:      st.Label(),
			Value:     counts[st],
			ItemStyle: &opts.ItemStyle{Color: st.Color().Background},
		})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	pie.AddSeries("semaforo", pieData,
		charts.WithLabelOpts(opts.Label{
			Show:      opts.Bool(true),
			Formatter: "{b}: {c}",
		}),
	)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Clientes por CAL"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(cals)
	for _, st := range models.Statuses {
		values := make([]opts.BarData, 0, len(cals))
		for _, cal := range cals {
			values = append(values, opts.BarData{Value: byCal[cal][st]})
		}
		bar.AddSeries(st.Label(), values,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: st.Color().Background}),
		)
	}
	bar.SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "total"}))

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(pie, bar)
	return page.Render(w)
}
