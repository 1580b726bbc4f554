// Package biz 实现知识库服务的业务逻辑层。
//
// 它将源端同步（Syncer）、向量检索（Retriever）、基于上下文的问答（Chat）、
// 交互式测验（Quiz）与批量选择题生成（MCQGenerator）组合为统一的
// Service 门面，供 handler 层调用。
package biz
