package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"telcochurn/pkg/charts"
	"telcochurn/pkg/data"
	"telcochurn/pkg/insights"
	"telcochurn/pkg/logger"
)

// --input   : Cleaned telco CSV
// --out-dir : Directory receiving the PNG charts
func main() {
	input := flag.String("input", "telco_churn_cleaned.csv", "dataset path")
	outDir := flag.String("out-dir", "report", "chart output directory")
	flag.Parse()

	log := logger.New("info", "console")
	defer log.Sync()

	table, err := data.Load(*input)
	if err != nil {
		log.Fatal("dataset load failed", zap.Error(err))
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal("cannot create output directory", zap.Error(err))
	}

	files, err := charts.Report(table, *outDir)
	if err != nil {
		log.Fatal("chart rendering failed", zap.Error(err))
	}

	if top := insights.TopCities(table, 1); len(top) == 1 {
		layer, err := insights.MapLayer(table, top[0].City, insights.ModeScatter)
		if err != nil {
			log.Fatal("map layer failed", zap.Error(err))
		}
		f := filepath.Join(*outDir, "top_city_scatter.png")
		if err := charts.CityScatter(layer, f); err != nil {
			log.Fatal("chart rendering failed", zap.Error(err))
		}
		files = append(files, f)
	}

	k := insights.Summarize(table)
	fmt.Printf("Customers: %d  Churned: %d  Rate: %.2f%%\n", k.Customers, k.Churned, k.ChurnRate*100)
	fmt.Printf("Avg tenure: %.1f months  Avg monthly charges: %.2f  Monthly revenue lost: %.2f\n",
		k.AvgTenureMonths, k.AvgMonthlyCharges, k.MonthlyRevenueLost)
	for _, f := range files {
		fmt.Println("wrote", f)
	}
}
