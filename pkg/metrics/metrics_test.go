package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(metricsEnabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording upstream metrics", func() {
			Convey("Then it should record upstream requests", func() {
				So(func() {
					RecordUpstreamRequest("federal", "recent", "success")
					RecordUpstreamRequest("statehouse", "by_topic", "failure")
					RecordUpstreamRequest("federal", "by_sponsor", "denied")
				}, ShouldNotPanic)
			})

			Convey("And it should record upstream latency", func() {
				So(func() {
					RecordUpstreamLatency("federal", "recent", 120.0)
					RecordUpstreamLatency("statehouse", "by_status", 340.0)
				}, ShouldNotPanic)
			})

			Convey("And it should record fetched bills", func() {
				So(func() {
					RecordBillsFetched("federal", 25)
					RecordBillsFetched("statehouse", 0)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording quota metrics", func() {
			So(func() {
				UpdateQuotaUsed("federal", 4999)
				UpdateQuotaLimit("federal", 5000)
				RecordQuotaDenied("federal")
			}, ShouldNotPanic)
		})

		Convey("When recording breaker metrics", func() {
			So(func() {
				UpdateBreakerState("federal", BreakerStateClosed)
				UpdateBreakerState("statehouse", BreakerStateOpen)
				RecordBreakerTransition("statehouse", "open")
				RecordBreakerTransition("statehouse", "half_open")
				RecordBreakerRejection("statehouse")
			}, ShouldNotPanic)
		})

		Convey("When recording aggregation metrics", func() {
			So(func() {
				RecordAggregateLatency("mixed", 45.0)
				RecordMergeDuplicates(3)
				RecordPartialResponse()
				RecordFallbackResponse()
			}, ShouldNotPanic)
		})

		Convey("When recording cache metrics", func() {
			So(func() {
				RecordCacheHit()
				RecordCacheStaleHit()
				RecordCacheMiss()
				RecordNotModified()
				UpdateCacheEntries(12)
			}, ShouldNotPanic)
		})

		Convey("When recording refresh metrics", func() {
			So(func() {
				UpdateRefreshQueueSize(5)
				UpdateRefreshQueueCapacity(256)
				RecordRefreshEnqueue()
				RecordRefreshDropped()
				RecordRefreshDuplicate()
				RecordRefreshJob("success")
				RecordRefreshJob("failure")
				RecordRefreshLatency(210.0)
				UpdateRefreshWorkers(2)
			}, ShouldNotPanic)
		})

		Convey("When recording feed metrics", func() {
			So(func() {
				RecordFeedPoll("federal-actions", "success")
				RecordFeedPoll("federal-actions", "failure")
				RecordFeedTrigger()
			}, ShouldNotPanic)
		})

		Convey("When recording civic metrics", func() {
			So(func() {
				RecordCivicLookup("success")
				RecordCivicLookup("not_found")
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP metrics", func() {
			Convey("Then it should record HTTP requests", func() {
				So(func() {
					RecordHTTPRequest("/healthz", "GET", "200")
					RecordHTTPRequest("/bills", "GET", "200")
					RecordHTTPRequest("/bills", "GET", "304")
				}, ShouldNotPanic)
			})

			Convey("And it should record HTTP request duration", func() {
				So(func() {
					RecordHTTPRequestDuration("/healthz", "GET", "200", 5.0)
					RecordHTTPRequestDuration("/bills", "GET", "200", 40.0)
				}, ShouldNotPanic)
			})

			Convey("And it should record rate limited requests", func() {
				So(func() {
					RecordHTTPRateLimited()
					RecordHTTPRateLimited()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording system metrics", func() {
			So(func() {
				UpdateSystemMemoryUsage(1024 * 1024 * 100)
				UpdateSystemGoroutineCount(100)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsEdgeCases(t *testing.T) {
	Convey("Given metrics edge cases", t, func() {
		Convey("When recording metrics with edge values", func() {
			Convey("And using zero values", func() {
				So(func() {
					UpdateRefreshQueueSize(0)
					UpdateCacheEntries(0)
					RecordBillsFetched("federal", 0)
					RecordUpstreamLatency("federal", "recent", 0.0)
					RecordHTTPRequestDuration("/test", "GET", "200", 0.0)
				}, ShouldNotPanic)
			})

			Convey("And using negative values", func() {
				So(func() {
					UpdateRefreshQueueSize(-100)
					UpdateCacheEntries(-10)
				}, ShouldNotPanic)
			})

			Convey("And using very large values", func() {
				So(func() {
					UpdateQuotaUsed("federal", 1000000)
					RecordUpstreamLatency("federal", "recent", 30000.0)
				}, ShouldNotPanic)
			})

			Convey("And using empty strings", func() {
				So(func() {
					RecordUpstreamRequest("", "", "")
					RecordHTTPRequest("", "", "200")
					RecordFeedPoll("", "")
				}, ShouldNotPanic)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given metrics concurrency", t, func() {
		Convey("When recording metrics concurrently", func() {
			done := make(chan bool, 10)

			// Start multiple goroutines recording metrics
			for i := 0; i < 10; i++ {
				go func(id int) {
					for j := 0; j < 100; j++ {
						RecordUpstreamRequest("federal", "recent", "success")
						UpdateRefreshQueueSize(j)
						RecordCacheHit()
						RecordHTTPRequest("/bills", "GET", "200")
					}
					done <- true
				}(i)
			}

			// Wait for all goroutines to complete
			for i := 0; i < 10; i++ {
				<-done
			}

			Convey("Then it should handle concurrent access without panics", func() {
				So(true, ShouldBeTrue) // If we get here, no panics occurred
			})
		})
	})
}
