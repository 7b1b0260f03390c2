package metrics

import (
	"context"
	"strconv"
	"time"

	"resume-ats-go/internal/processor"
	"resume-ats-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "resume_ats"

// Metrics 服务的Prometheus指标，同时作为分析流程的观察者
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	analyses     *prometheus.CounterVec
	scores       *prometheus.HistogramVec
	degraded     *prometheus.CounterVec
	resumeSkills prometheus.Histogram
}

var _ processor.Observer = (*Metrics)(nil)

// New 创建独立的注册表并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP请求数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP请求耗时",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "完成的分析次数，按岗位关键词来源区分",
		}, []string{"keyword_source", "with_jd"}),
		scores: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ats_score",
			Help:      "ATS分数分布",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}, []string{"kind"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_total",
			Help:      "外部能力失败后降级处理的次数",
		}, []string{"capability"}),
		resumeSkills: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resume_skills",
			Help:      "每份简历识别出的技能数",
			Buckets:   []float64{0, 1, 3, 5, 10, 20, 40},
		}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.analyses, m.scores, m.degraded, m.resumeSkills)
	return m
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDegraded 记录一次能力降级
func (m *Metrics) ObserveDegraded(capability string) {
	m.degraded.WithLabelValues(capability).Inc()
}

// ObserveReport 记录一次完成的分析
func (m *Metrics) ObserveReport(report *types.AnalysisReport, source processor.KeywordSource) {
	if report == nil {
		return
	}
	withJD := report.ATSScoreJD != nil
	m.analyses.WithLabelValues(string(source), strconv.FormatBool(withJD)).Inc()
	m.scores.WithLabelValues("role").Observe(float64(report.ATSScoreRole))
	if withJD {
		m.scores.WithLabelValues("jd").Observe(float64(*report.ATSScoreJD))
	}
	m.resumeSkills.Observe(float64(len(report.ResumeSkills)))
}

// Middleware 统计请求数与耗时，未匹配路由的请求记为 "unmatched"
func (m *Metrics) Middleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := string(c.Method())
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Response.StatusCode())).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler 暴露 /metrics，通过 adaptor 把 hertz 请求转换为 net/http 请求交给 promhttp
func (m *Metrics) Handler() app.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(ctx context.Context, c *app.RequestContext) {
		req, err := adaptor.GetCompatRequest(&c.Request)
		if err != nil {
			c.AbortWithStatus(consts.StatusInternalServerError)
			return
		}
		h.ServeHTTP(adaptor.GetCompatResponseWriter(&c.Response), req.WithContext(ctx))
	}
}
