package scheduler

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/utils"
)

type Scheduler struct {
	parameters *Parameters
	shifts     []*domain.Shift
	shiftMap   map[uuid.UUID]*domain.Shift
	candidates map[uuid.UUID][]uuid.UUID // {shiftID: [employeeID1, employeeID2, ...]}
	employees  []uuid.UUID               // 至少能值一个班次的员工
}

func New(parameters *Parameters, shifts []*domain.Shift, candidates map[uuid.UUID][]uuid.UUID) (*Scheduler, error) {
	if parameters.PopulationSize <= 0 || parameters.EliteCount > parameters.PopulationSize {
		return nil, fmt.Errorf("种群大小 %d 与精英数量 %d 不合法", parameters.PopulationSize, parameters.EliteCount)
	}

	s := &Scheduler{
		parameters: parameters,
		shifts:     shifts,
		shiftMap:   make(map[uuid.UUID]*domain.Shift, len(shifts)),
		candidates: candidates,
		employees:  make([]uuid.UUID, 0),
	}

	for _, shift := range shifts {
		s.shiftMap[shift.ID] = shift
	}

	for shiftID, ids := range candidates {
		if _, exists := s.shiftMap[shiftID]; !exists {
			return nil, fmt.Errorf("班次 %s 不在传入的 shifts 数组中", shiftID)
		}
		for _, id := range ids {
			if !slices.Contains(s.employees, id) {
				s.employees = append(s.employees, id)
			}
		}
	}

	return s, nil
}

// Schedule 返回 {shiftID: [employeeID, ...]} 形式的分配结果
func (s *Scheduler) Schedule() (map[uuid.UUID][]uuid.UUID, error) {
	// 生成初始种群
	pop := make([]*Chromosome, s.parameters.PopulationSize)
	for i := range pop {
		pop[i] = s.randomInitChromosome()
		s.calcFitness(pop[i])
	}

	bestChromosomeEver := &Chromosome{
		genes:   nil,
		fitness: -math.MaxFloat64,
	}

	for gen := 0; gen < int(s.parameters.MaxGenerations); gen++ {
		// 找到本代最佳样本
		sort.Slice(pop, func(i, j int) bool {
			return pop[i].fitness > pop[j].fitness
		})
		if pop[0].fitness > bestChromosomeEver.fitness {
			// 深拷贝，防止后续繁殖的过程中基因被修改
			bestChromosomeEver = pop[0].clone()
		}

		// 繁殖，保留精英
		newPop := make([]*Chromosome, 0, s.parameters.PopulationSize)
		for _, elite := range pop[:int(s.parameters.EliteCount)] {
			newPop = append(newPop, elite.clone())
		}

		for len(newPop) < int(s.parameters.PopulationSize) {
			p1 := s.selectByRoulette(pop).clone()
			p2 := s.selectByRoulette(pop).clone()

			if rand.Float64() < s.parameters.CrossoverRate {
				s.singlePointCrossover(p1, p2)
			}

			s.mutate(p1)
			s.mutate(p2)

			newPop = append(newPop, p1)
			if len(newPop) < int(s.parameters.PopulationSize) {
				newPop = append(newPop, p2)
			}
		}

		for i := range pop {
			pop[i] = newPop[i]
			s.calcFitness(pop[i])
		}
	}

	// 最后一代也参与比较
	for _, ch := range pop {
		if ch.fitness > bestChromosomeEver.fitness {
			bestChromosomeEver = ch.clone()
		}
	}

	result := make(map[uuid.UUID][]uuid.UUID, len(bestChromosomeEver.genes))
	for _, gene := range bestChromosomeEver.genes {
		result[gene.shiftID] = gene.employeeIDs
	}

	// 检查结果是否满足约束条件
	if err := utils.ValidateAllocations(s.shifts, result); err != nil {
		return nil, err
	}
	for shiftID, ids := range result {
		for _, id := range ids {
			if !slices.Contains(s.candidates[shiftID], id) {
				return nil, fmt.Errorf("员工 %s 不能在班次 %s 值班", id, shiftID)
			}
		}
	}

	return result, nil
}
