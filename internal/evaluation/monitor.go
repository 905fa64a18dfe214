package evaluation

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MeKo-Tech/radeval/internal/metrics"
)

// Monitor exports the scalar results of each evaluation pass as Prometheus
// gauges so training dashboards can track them over time.
type Monitor struct {
	valLoss         *prometheus.GaugeVec
	trainLoss       *prometheus.GaugeVec
	regionIoU       *prometheus.GaugeVec
	regionDetected  *prometheus.GaugeVec
	detectedPerImg  prometheus.Gauge
	precision       *prometheus.GaugeVec
	recall          *prometheus.GaugeVec
	textScore       *prometheus.GaugeVec
	bestValLoss     prometheus.Gauge
	evaluationsDone prometheus.Counter
}

// NewMonitor creates and registers the evaluation gauges on reg.
func NewMonitor(reg prometheus.Registerer) *Monitor {
	m := &Monitor{
		valLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "radeval_val_loss",
			Help: "Validation loss per module from the latest evaluation pass",
		}, []string{"module"}),
		trainLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "radeval_train_loss",
			Help: "Normalized training loss per module",
		}, []string{"module"}),
		regionIoU: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "radeval_region_iou",
			Help: "Average IoU per anatomical region",
		}, []string{"region"}),
		regionDetected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "radeval_region_detections",
			Help: "Average detections per image per anatomical region",
		}, []string{"region"}),
		detectedPerImg: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "radeval_detected_regions_per_image",
			Help: "Average number of detected regions per image",
		}),
		precision: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "radeval_precision",
			Help: "Precision of the binary decision tasks",
		}, []string{"task", "subset"}),
		recall: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "radeval_recall",
			Help: "Recall of the binary decision tasks",
		}, []string{"task", "subset"}),
		textScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "radeval_text_score",
			Help: "Text quality scores per subset",
		}, []string{"subset", "metric"}),
		bestValLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "radeval_best_val_loss",
			Help: "Lowest total validation loss seen this run",
		}),
		evaluationsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radeval_evaluations_total",
			Help: "Number of completed evaluation passes",
		}),
	}

	reg.MustRegister(
		m.valLoss, m.trainLoss,
		m.regionIoU, m.regionDetected, m.detectedPerImg,
		m.precision, m.recall, m.textScore,
		m.bestValLoss, m.evaluationsDone,
	)
	return m
}

// Publish pushes one report into the gauges.
func (m *Monitor) Publish(report *Report, decision CheckpointDecision) {
	if m == nil {
		return
	}

	publishLosses(m.valLoss, report.ValLosses)
	publishLosses(m.trainLoss, report.TrainLosses)

	for _, rs := range report.Regions {
		m.regionIoU.WithLabelValues(rs.Region).Set(rs.IoU)
		m.regionDetected.WithLabelValues(rs.Region).Set(rs.Detections)
	}
	m.detectedPerImg.Set(report.AvgDetectionsPerImage)

	for _, pr := range report.RegionSelection {
		m.precision.WithLabelValues("region_selection", string(pr.Subset)).Set(pr.Precision)
		m.recall.WithLabelValues("region_selection", string(pr.Subset)).Set(pr.Recall)
	}
	for _, pr := range report.RegionAbnormal {
		m.precision.WithLabelValues("region_abnormal", string(pr.Subset)).Set(pr.Precision)
		m.recall.WithLabelValues("region_abnormal", string(pr.Subset)).Set(pr.Recall)
	}

	for _, ts := range report.TextQuality {
		subset := string(ts.Subset)
		m.textScore.WithLabelValues(subset, "bleu_1").Set(ts.Bleu1)
		m.textScore.WithLabelValues(subset, "bleu_2").Set(ts.Bleu2)
		m.textScore.WithLabelValues(subset, "bleu_3").Set(ts.Bleu3)
		m.textScore.WithLabelValues(subset, "bleu_4").Set(ts.Bleu4)
		m.textScore.WithLabelValues(subset, "semantic_precision").Set(ts.SemanticPrecision)
		m.textScore.WithLabelValues(subset, "semantic_recall").Set(ts.SemanticRecall)
		m.textScore.WithLabelValues(subset, "semantic_f1").Set(ts.SemanticF1)
	}

	if decision.IsBest {
		m.bestValLoss.Set(decision.ValLoss)
	}
	m.evaluationsDone.Inc()
}

func publishLosses(vec *prometheus.GaugeVec, losses LossBreakdown) {
	vec.WithLabelValues("total").Set(losses.Total)
	vec.WithLabelValues("detector").Set(losses.Detector)
	vec.WithLabelValues("region_selection").Set(losses.RegionSelection)
	vec.WithLabelValues("region_abnormal").Set(losses.RegionAbnormal)
	vec.WithLabelValues("language_model").Set(losses.LanguageModel)
}
